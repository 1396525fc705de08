package report

import "github.com/akramov/reportflow/internal/session"

// Bag keys for draft fields and flow bookkeeping. The session bag is the
// only owner of in-progress report data.
const (
	keyClientName      = "client_name"
	keyPhoneNumber     = "phone_number"
	keyAdditionalPhone = "additional_phone"
	keyHasAdditional   = "has_additional" // "yes"/"no" — explicit, never ambiguous
	keyProductType     = "product_type"
	keyClientLocation  = "client_location"
	keyContractID      = "contract_id"
	keyContractAmount  = "contract_amount"
	keyPhotoRef        = "photo_ref"

	keyLastPromptID = "last_prompt_id"
	keyEditReturn   = "edit_return"
	keyDestChannel  = "dest_channel"
	keyDestTopic    = "dest_topic"
	keyDestSheet    = "dest_sheet" // "spreadsheetID|worksheet"
	keyDestName     = "dest_name"
)

// Draft is the in-progress report assembled field by field during one
// conversation.
type Draft struct {
	ClientName      string
	PhoneNumber     string
	AdditionalPhone string // empty when explicitly declined
	ProductType     string
	ClientLocation  string
	ContractID      string
	ContractAmount  string // formatted
	PhotoRef        string
}

// draftFromBag reconstructs a Draft from the session bag.
func draftFromBag(bag session.Bag) Draft {
	d := Draft{
		ClientName:     bag[keyClientName],
		PhoneNumber:    bag[keyPhoneNumber],
		ProductType:    bag[keyProductType],
		ClientLocation: bag[keyClientLocation],
		ContractID:     bag[keyContractID],
		ContractAmount: bag[keyContractAmount],
		PhotoRef:       bag[keyPhotoRef],
	}
	if bag[keyHasAdditional] == "yes" {
		d.AdditionalPhone = bag[keyAdditionalPhone]
	}
	return d
}

// Complete reports whether every required field is populated and the
// optional phone has been explicitly decided.
func (d Draft) Complete(hasAdditionalDecided bool) bool {
	return d.ClientName != "" &&
		d.PhoneNumber != "" &&
		d.ProductType != "" &&
		d.ClientLocation != "" &&
		d.ContractID != "" &&
		d.ContractAmount != "" &&
		d.PhotoRef != "" &&
		hasAdditionalDecided
}

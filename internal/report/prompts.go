package report

import (
	"fmt"

	"github.com/akramov/reportflow/internal/chat"
)

// User-facing prompt and notice texts. The flow keeps exactly one live
// prompt per conversation, so each of these replaces the previous one.
const (
	msgBlocked       = "Your account is blocked. Contact an administrator."
	msgNoDestination = "You have no review group assigned. Contact an administrator."
	msgNoGroups      = "No review groups are configured yet. Contact an administrator."

	msgAskClientName = "Enter the client's full name:"
	msgBadClientName = "That name looks too short. Enter the client's full name (at least 3 characters):"

	msgAskPhone = "Enter the client's phone number:"
	msgBadPhone = "That doesn't look like a phone number. Enter at least 9 digits:"

	msgAskAddPhoneDecision = "Add an additional phone number?"
	msgAskAddPhone         = "Enter the additional phone number:"

	msgAskProduct = "What product was sold?"
	msgBadProduct = "That product name looks too short. Try again:"

	msgAskLocation = "Enter the client's address:"
	msgBadLocation = "That address looks too short. Enter the full address (at least 10 characters):"

	msgAskContractID = "Enter the contract number:"
	msgBadContractID = "That contract number looks too short. Try again:"

	msgAskAmount = "Enter the contract amount:"
	msgBadAmount = "The amount must contain at least one digit. Try again:"

	msgAskPhoto = "Attach a photo of the signed contract:"
	msgBadPhoto = "Please attach a photo."

	msgAskDestination = "Select the review group for this report:"
	msgAskEditField   = "Which field do you want to change?"

	msgCancelled       = "Report cancelled."
	msgNothingToCancel = "No report in progress. Nothing to cancel."
	msgSubmitted       = "Your report has been submitted for review."
	msgDeliveryFailed  = "Could not deliver the report. Try again or contact an administrator."

	msgNotAllowed        = "You are not allowed to do that."
	msgConfirmed         = "Report confirmed."
	msgAlreadyConfirmed  = "This report is already confirmed."
	msgRejectedAck       = "Report rejected."
	msgRejectDeleteFail  = "Could not remove the report message. Try again."
	msgConfirmEditFail   = "Could not update the report message. Try again."
	msgConfirmedNoSheet  = "Confirmed. No spreadsheet is configured for this group."
	msgConfirmedNoExport = "Confirmed, but the spreadsheet update failed."

	msgRejectedNotice = "Your report was rejected. Contact the approver for details."
)

// Button action identifiers.
const (
	actionCancelReport = "cancel_report"

	actionAddPhoneYes = "add_phone_yes"
	actionAddPhoneNo  = "add_phone_no"

	actionConfirmDraft  = "confirm_draft"
	actionEditDraft     = "edit_draft"
	actionCancelDraft   = "cancel_draft"
	actionBackToConfirm = "back_to_confirmation"

	actionEditClientName = "edit_client_name"
	actionEditPhone      = "edit_phone"
	actionEditAddPhone   = "edit_additional_phone"
	actionEditProduct    = "edit_product"
	actionEditLocation   = "edit_location"
	actionEditContractID = "edit_contract_id"
	actionEditAmount     = "edit_amount"
	actionEditPhoto      = "edit_photo"

	actionSelectDestPrefix = "select_dest_"

	actionConfirmReport   = "confirm_report"
	actionRejectReport    = "reject_report"
	actionStatusConfirmed = "status_confirmed"
)

func cancelControls() []chat.Control {
	return []chat.Control{
		{Label: "Cancel", Action: actionCancelReport},
	}
}

func decisionControls() []chat.Control {
	return []chat.Control{
		{Label: "Yes", Action: actionAddPhoneYes},
		{Label: "No", Action: actionAddPhoneNo},
		{Label: "Cancel", Action: actionCancelReport},
	}
}

func confirmationControls() []chat.Control {
	return []chat.Control{
		{Label: "Confirm", Action: actionConfirmDraft},
		{Label: "Edit", Action: actionEditDraft},
		{Label: "Cancel", Action: actionCancelDraft},
	}
}

func editMenuControls() []chat.Control {
	return []chat.Control{
		{Label: "Client name", Action: actionEditClientName},
		{Label: "Phone", Action: actionEditPhone},
		{Label: "Additional phone", Action: actionEditAddPhone},
		{Label: "Product", Action: actionEditProduct},
		{Label: "Address", Action: actionEditLocation},
		{Label: "Contract number", Action: actionEditContractID},
		{Label: "Amount", Action: actionEditAmount},
		{Label: "Photo", Action: actionEditPhoto},
		{Label: "Back", Action: actionBackToConfirm},
	}
}

func destinationControls(dests []Destination) []chat.Control {
	controls := make([]chat.Control, 0, len(dests)+1)
	for _, d := range dests {
		controls = append(controls, chat.Control{
			Label:  d.Name,
			Action: fmt.Sprintf("%s%d", actionSelectDestPrefix, d.GroupID),
		})
	}
	return append(controls, chat.Control{Label: "Cancel", Action: actionCancelReport})
}

// reviewControls are attached to the report delivered to the review channel.
func reviewControls() []chat.Control {
	return []chat.Control{
		{Label: "Confirm", Action: actionConfirmReport},
		{Label: "Reject", Action: actionRejectReport},
	}
}

// confirmedControls replace the review buttons once a report is confirmed.
// The single button is inert: pressing it only restates the status.
func confirmedControls() []chat.Control {
	return []chat.Control{
		{Label: "Confirmed", Action: actionStatusConfirmed},
	}
}

// contactControls builds the buttons attached to a rejection notice. The
// approver link is included when the adapter can produce one.
func contactControls(approverLink string) []chat.Control {
	if approverLink == "" {
		return nil
	}
	return []chat.Control{
		{Label: "Contact approver", URL: approverLink},
	}
}

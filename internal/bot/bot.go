// Package bot runs the reportflow daemon: it connects a chat adapter,
// pumps inbound events through the report router, and schedules the
// periodic digest and session sweep.
package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/akramov/reportflow/internal/chat"
	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/dashboard"
	"github.com/akramov/reportflow/internal/report"
	"github.com/akramov/reportflow/internal/session"
	"github.com/akramov/reportflow/internal/sheets"
)

// sweepInterval is how often expired in-memory sessions are dropped.
// Redis sessions expire server-side and never need sweeping.
const sweepInterval = 10 * time.Minute

// Daemon is the main reportflow process.
type Daemon struct {
	db       *gorm.DB
	cfg      *config.Config
	adapter  chat.Adapter
	sink     sheets.Sink
	sessions session.Store
	out      io.Writer
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	DB       *gorm.DB
	Config   *config.Config
	Adapter  chat.Adapter
	Sink     sheets.Sink   // optional; nil disables spreadsheet export
	Sessions session.Store // optional; built from config when nil
	Out      io.Writer     // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("bot: db is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("bot: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Sink == nil {
		fmt.Fprintf(out, "bot: no spreadsheet sink configured; export disabled\n")
	}
	return &Daemon{
		db:       opts.DB,
		cfg:      opts.Config,
		adapter:  opts.Adapter,
		sink:     opts.Sink,
		sessions: opts.Sessions,
		out:      out,
	}, nil
}

// Run starts the daemon. It connects the adapter, builds the report
// subsystems, and blocks until the context is cancelled. On shutdown it
// closes the adapter gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Reportflow connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}

	// Extract bot user ID if the adapter supports it.
	var botUserID string
	if bui, ok := d.adapter.(chat.BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}

	sessions, err := d.resolveSessions(ctx)
	if err != nil {
		d.adapter.Close()
		return err
	}

	store, err := report.NewStore(d.db)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build store: %w", err)
	}

	submitter, err := report.NewSubmitter(report.SubmitterOpts{
		Adapter:  d.adapter,
		Sessions: sessions,
		Store:    store,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build submitter: %w", err)
	}

	flow, err := report.NewFlow(report.FlowOpts{
		Adapter:   d.adapter,
		Sessions:  sessions,
		Store:     store,
		Submitter: submitter,
		Strategy:  d.cfg.Strategy,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build flow: %w", err)
	}

	approver, err := report.NewApprover(report.ApproverOpts{
		Adapter:    d.adapter,
		Store:      store,
		Sink:       d.sink,
		ApproverID: d.cfg.ApproverID,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build approver: %w", err)
	}

	router, err := report.NewRouter(report.RouterOpts{
		Flow:      flow,
		Approver:  approver,
		Sessions:  sessions,
		Trigger:   d.cfg.Trigger,
		BotUserID: botUserID,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build router: %w", err)
	}

	// Start listening for inbound events.
	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: listen: %w", err)
	}

	// Schedule the digest.
	scheduler := cron.New()
	if d.cfg.Digest.Enabled {
		_, err := scheduler.AddFunc(d.cfg.Digest.Cron, func() {
			d.sendDigest(ctx, store)
		})
		if err != nil {
			d.adapter.Close()
			return fmt.Errorf("bot: digest schedule %q: %w", d.cfg.Digest.Cron, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Start the ops dashboard.
	if d.cfg.Dashboard.Enabled {
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{
				DB:   d.db,
				Port: d.cfg.Dashboard.Port,
				Out:  d.out,
			})
			if err != nil {
				log.Printf("bot: dashboard: %v", err)
			}
		}()
	}

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	fmt.Fprintf(d.out, "Reportflow online\n")

	// Main event loop: pump inbound events until the context is cancelled.
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Reportflow shutting down...\n")
			if err := d.adapter.Close(); err != nil {
				log.Printf("bot: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Reportflow stopped\n")
			return nil

		case ev, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "Reportflow inbound channel closed\n")
				return nil
			}
			router.Handle(ctx, ev)

		case <-sweep.C:
			if ms, ok := sessions.(*session.MemoryStore); ok {
				if n := ms.Sweep(); n > 0 {
					log.Printf("bot: swept %d expired sessions", n)
				}
			}
		}
	}
}

// resolveSessions returns the injected session store, or builds one from
// config: redis when an address is configured, in-memory otherwise.
func (d *Daemon) resolveSessions(ctx context.Context) (session.Store, error) {
	if d.sessions != nil {
		return d.sessions, nil
	}
	ttl := time.Duration(d.cfg.Session.TTLMinutes) * time.Minute
	if d.cfg.Redis.Addr != "" {
		rs, err := session.NewRedisStore(ctx, session.RedisStoreOpts{
			Addr:     d.cfg.Redis.Addr,
			Password: d.cfg.Redis.Password,
			DB:       d.cfg.Redis.DB,
			TTL:      ttl,
		})
		if err != nil {
			return nil, fmt.Errorf("bot: %w", err)
		}
		fmt.Fprintf(d.out, "Sessions: redis at %s\n", d.cfg.Redis.Addr)
		return rs, nil
	}
	fmt.Fprintf(d.out, "Sessions: in-memory (ttl %s)\n", ttl)
	return session.NewMemoryStore(ttl), nil
}

// sendDigest posts the status-count digest to the approver (best-effort).
func (d *Daemon) sendDigest(ctx context.Context, store *report.Store) {
	counts, err := store.StatusCounts()
	if err != nil {
		log.Printf("bot: digest counts: %v", err)
		return
	}
	text := report.RenderDigest(counts)
	if _, err := d.adapter.SendText(ctx, d.cfg.ApproverID, "", text, nil); err != nil {
		log.Printf("bot: send digest: %v", err)
	}
}

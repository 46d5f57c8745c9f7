package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jask/teammate/internal/config"
	"github.com/jask/teammate/internal/database"
	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/documents"
	"github.com/jask/teammate/internal/graph"
	"github.com/jask/teammate/internal/llm"
	"github.com/jask/teammate/internal/prefs"
	"github.com/jask/teammate/internal/reminder"
	"github.com/jask/teammate/internal/router"
	"github.com/jask/teammate/internal/secrets"
	"github.com/jask/teammate/internal/service"
	"github.com/jask/teammate/internal/speech"
)

// graphAPI is what the handlers and the webhook need from Graph, served by
// either the real client or the offline stand-in.
type graphAPI interface {
	service.Calendar
	service.Messenger
	Me(ctx context.Context) (string, error)
}

// queue is a reminder queue the process can also probe.
type queue interface {
	reminder.Queue
	Ping(ctx context.Context) error
}

// app holds every collaborator built from configuration.
type app struct {
	db           *sql.DB
	graph        graphAPI
	queue        queue
	meetings     *repository.MeetingRepo
	router       *router.Router
	sessions     *service.SessionManager
	communicator *service.CommunicatorService
	dispatcher   *reminder.Dispatcher
	maintenance  *service.MaintenanceService

	closers []func() error
}

func build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	if err := database.RunMigrations(cfg.Database.Path, ""); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	// repositories
	a.meetings = repository.NewMeetingRepo(db)
	docRepo := repository.NewDocumentRepo(db)
	commRepo := repository.NewCommunicationRepo(db)

	contacts, err := prefs.LoadContacts(cfg.Contacts.Path)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("contacts: %w", err)
	}

	if cfg.Graph.Configured() {
		a.graph = graph.New(ctx, cfg.Graph, logger)
	} else {
		logger.Warn("graph credentials not configured, running offline")
		a.graph = graph.NewOffline(logger)
	}

	if cfg.Reminder.RedisURL != "" {
		client, err := reminder.OpenRedis(cfg.Reminder.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.queue = reminder.NewRedisQueue(client, "")
	} else {
		a.queue = reminder.NewSQLQueue(db)
	}

	provider, err := llm.New(cfg.LLM.Provider, resolveAPIKey(cfg), cfg.LLM.Model, cfg.LLM.Timeout)
	if err != nil {
		a.close()
		return nil, err
	}

	speaker := speech.NewSynthesizer(cfg.Speech, logger)
	transcriber := speech.NewWhisper(cfg.Speech)

	loc, err := time.LoadLocation(cfg.Meeting.Timezone)
	if err != nil {
		logger.Warn("using local timezone due to load failure", zap.Error(err))
		loc = time.Local
	}

	a.sessions = service.NewSessionManager(func(meetingID string) service.Listener {
		return speech.NewCapture(filepath.Join(cfg.Speech.CaptureDir, meetingID), transcriber, logger)
	}, a.meetings, logger)
	a.closers = append(a.closers, func() error {
		a.sessions.Close()
		return nil
	})

	wake := cfg.Router.WakeWord
	defaultAttendee := ""
	if len(cfg.Meeting.DefaultAttendees) > 0 {
		defaultAttendee = cfg.Meeting.DefaultAttendees[0]
	}

	a.communicator = &service.CommunicatorService{
		WakeWord:         wake,
		TeamID:           cfg.Graph.TeamID,
		ChannelID:        cfg.Graph.ChannelID,
		Messenger:        a.graph,
		Speaker:          speaker,
		Communications:   commRepo,
		Contacts:         contacts,
		DefaultRecipient: defaultAttendee,
		Logger:           logger,
	}
	handlers := router.Handlers{
		Scheduler: &service.SchedulerService{
			WakeWord:         wake,
			Calendar:         a.graph,
			Meetings:         a.meetings,
			Reminders:        a.queue,
			Contacts:         contacts,
			UserID:           cfg.Graph.UserID,
			DefaultAttendees: cfg.Meeting.DefaultAttendees,
			Duration:         cfg.Meeting.Duration,
			ReminderLead:     cfg.Meeting.ReminderLead,
			Location:         loc,
			Now:              time.Now,
			Logger:           logger,
		},
		NoteTaker: &service.NoteTakerService{
			WakeWord: wake,
			Meetings: a.meetings,
			Sessions: a.sessions,
			Logger:   logger,
		},
		Presenter: &service.PresenterService{
			WakeWord:        wake,
			DataDir:         cfg.Documents.DataDir,
			Meetings:        a.meetings,
			Messenger:       a.graph,
			Speaker:         speaker,
			DefaultAttendee: defaultAttendee,
			SlidePause:      cfg.Presenter.SlidePause,
			Logger:          logger,
		},
		Communicator: a.communicator,
		Reader: &service.ReaderService{
			WakeWord:  wake,
			DataDir:   cfg.Documents.DataDir,
			Reader:    &documents.Reader{Transcriber: transcriber},
			Documents: docRepo,
			Answerer:  provider,
			Logger:    logger,
		},
		Suggestor: &service.SuggestorService{
			WakeWord:  wake,
			Meetings:  a.meetings,
			Suggester: provider,
			Logger:    logger,
		},
	}

	a.router, err = router.New(router.Options{
		WakeWord:      wake,
		SuppressTerms: cfg.Router.SuppressTerms,
		Threshold:     cfg.Router.Threshold,
		KeywordBonus:  cfg.Router.KeywordBonus,
		Timeout:       cfg.Router.Timeout,
	}, provider, handlers, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	a.dispatcher = reminder.NewDispatcher(a.queue, a.communicator, cfg.Reminder, logger)
	a.maintenance = &service.MaintenanceService{DB: db}
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

// resolveAPIKey looks in the provider's env var, then the secrets store, then
// the config file.
func resolveAPIKey(cfg config.Config) string {
	provider := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	env := strings.TrimSpace(cfg.LLM.APIKeyEnv)
	if env == "" {
		switch provider {
		case "openai":
			env = "OPENAI_API_KEY"
		case "gemini":
			env = "GEMINI_API_KEY"
		}
	}
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if provider != "" && provider != "local" {
		if k, err := secrets.NewStore(cfg.Secrets.Dir).Get(provider); err == nil {
			return k
		}
	}
	return strings.TrimSpace(cfg.LLM.APIKey)
}

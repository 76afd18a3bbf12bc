package tgflow

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ysy950803/tgflow/internal/client"
	"github.com/ysy950803/tgflow/internal/dispatch"
	"github.com/ysy950803/tgflow/internal/errors"
	"github.com/ysy950803/tgflow/internal/model"
	"github.com/ysy950803/tgflow/internal/session"
	"github.com/ysy950803/tgflow/internal/tgflow/conf"
	"github.com/ysy950803/tgflow/internal/tgflow/http"
	"github.com/ysy950803/tgflow/internal/transport"
	"github.com/ysy950803/tgflow/internal/wire"
	"github.com/ysy950803/tgflow/pkg/config"
)

const topicDumpLimit = 64

// Manager 管理 tgflow 应用
type Manager struct {
	sc  *conf.ServiceConfig
	scm *config.Manager

	store   session.Store
	sess    *session.Session
	watcher *session.Watcher

	client     *client.Client
	dispatcher *dispatch.Dispatcher
	http       *http.Service

	mu         sync.Mutex
	knownChats map[int64]model.Chat
	topicDumps []http.TopicDump
}

func New() *Manager {
	return &Manager{
		knownChats: make(map[int64]model.Chat),
	}
}

// Run wires the whole pipeline and blocks until a shutdown signal or a
// transport failure.
func (m *Manager) Run(configPath string, cmdConf map[string]any) error {
	var err error
	m.sc, m.scm, err = conf.LoadServiceConfig(configPath, cmdConf)
	if err != nil {
		return err
	}
	log.Info().Msgf("service config: %+v", m.sc)

	if err := m.openSession(); err != nil {
		return err
	}
	defer m.closeSession()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr, err := transport.Dial(ctx, m.sc.GatewayURL)
	if err != nil {
		return err
	}
	defer tr.Close()

	m.client = client.New(tr, m.sess)
	m.dispatcher = dispatch.New(m.client, m.store, m.handleUpdate,
		dispatch.WithMaxInFlight(m.sc.MaxInFlight))

	if m.sc.IsHTTPEnabled() {
		m.http = http.NewService(m.sc, m, m)
		if err := m.http.Start(); err != nil {
			return err
		}
		defer m.http.Stop()
	}

	log.Info().Msg("tgflow is running. Press Ctrl+C to exit.")
	err = m.dispatcher.Run(ctx)
	log.Info().Msg("Shutdown complete")
	return err
}

func (m *Manager) openSession() error {
	switch m.sc.SessionDriver {
	case conf.SessionDriverFile:
		store := session.NewFileStore(m.sc.SessionPath)
		if m.sc.WatchSession {
			w, err := session.NewWatcher(m.sc.SessionPath, func() {
				log.Warn().Msg("session file rewritten externally, state may be stale until restart")
			})
			if err != nil {
				log.Warn().Err(err).Msg("session watcher unavailable")
			} else {
				m.watcher = w
				store.OnSave = w.Expect
			}
		}
		m.store = store
	case conf.SessionDriverSQLite:
		store, err := session.NewSQLiteStore(m.sc.SessionPath)
		if err != nil {
			return err
		}
		m.store = store
	default:
		return errors.SessionDriverUnsupported(m.sc.SessionDriver)
	}

	sess, err := session.LoadOrCreate(m.store)
	if err != nil {
		return err
	}
	m.sess = sess
	return nil
}

func (m *Manager) closeSession() {
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			log.Debug().Err(err).Msg("close session watcher failed")
		}
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			log.Debug().Err(err).Msg("close session store failed")
		}
	}
}

// handleUpdate is the default dispatch handler: it records the chats each
// batch carried, applies the topic filter and logs what came in.
func (m *Manager) handleUpdate(ctx context.Context, c *client.Client, u client.Update) error {
	switch u.Kind {
	case client.UpdateNewMessage, client.UpdateMessageEdited:
		msg := u.Message
		m.recordChats(msg.Registry())
		m.recordTopicDump(msg)

		if len(m.sc.AllowedTopics) > 0 && !msg.IsInTopics(m.sc.AllowedTopics) {
			log.Debug().
				Int("msg_id", msg.ID()).
				Int64("chat_id", msg.Chat().ID()).
				Msg("message outside allowed topics, skipped")
			return nil
		}

		log.Info().
			Str("kind", u.Kind.String()).
			Int("msg_id", msg.ID()).
			Int64("chat_id", msg.Chat().ID()).
			Str("chat", msg.Chat().Name()).
			Str("text", msg.Text()).
			Msg("message")

		if m.sc.ReplyText != "" && u.Kind == client.UpdateNewMessage && !msg.Outgoing() {
			if _, err := c.Reply(ctx, msg, model.Text(m.sc.ReplyText)); err != nil {
				return err
			}
		}
	case client.UpdateMessagesDeleted:
		log.Info().Ints("ids", u.DeletedIDs).Msg("messages deleted")
	default:
		log.Debug().Msg("raw update ignored")
	}
	return nil
}

func (m *Manager) recordChats(chats *model.ChatMap) {
	if chats == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chat := range chats.All() {
		m.knownChats[chat.ID()] = chat
	}
}

func (m *Manager) recordTopicDump(msg *model.Message) {
	dump := http.TopicDump{
		Time:      time.Now(),
		ChatID:    msg.Chat().ID(),
		MessageID: msg.ID(),
		Detail:    msg.DebugTopicInfo(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topicDumps = append(m.topicDumps, dump)
	if len(m.topicDumps) > topicDumpLimit {
		m.topicDumps = m.topicDumps[len(m.topicDumps)-topicDumpLimit:]
	}
}

// LoopState implements http.Status.
func (m *Manager) LoopState() string {
	if m.dispatcher == nil {
		return dispatch.StateIdle.String()
	}
	return m.dispatcher.State().String()
}

func (m *Manager) Dispatched() uint64 {
	if m.dispatcher == nil {
		return 0
	}
	return m.dispatcher.Dispatched()
}

func (m *Manager) Failed() uint64 {
	if m.dispatcher == nil {
		return 0
	}
	return m.dispatcher.Failed()
}

func (m *Manager) SessionState() wire.State {
	if m.sess == nil {
		return wire.State{}
	}
	return m.sess.State()
}

func (m *Manager) SessionUser() (int64, bool) {
	if m.sess == nil {
		return 0, false
	}
	userID := m.sess.User()
	return userID, userID != 0
}

// KnownChats implements http.Registry.
func (m *Manager) KnownChats() []model.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Chat, 0, len(m.knownChats))
	for _, chat := range m.knownChats {
		out = append(out, chat)
	}
	return out
}

func (m *Manager) RecentTopicDumps() []http.TopicDump {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]http.TopicDump, len(m.topicDumps))
	copy(out, m.topicDumps)
	return out
}

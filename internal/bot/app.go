package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/Armin-kho/currency-rate-bot/internal/items"
	"github.com/Armin-kho/currency-rate-bot/internal/metrics"
	"github.com/Armin-kho/currency-rate-bot/internal/rates"
	"github.com/Armin-kho/currency-rate-bot/internal/render"
	"github.com/Armin-kho/currency-rate-bot/internal/session"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// RateSource resolves a pair and explains the result.
type RateSource interface {
	Explain(ctx context.Context, from, to string) rates.Outcome
}

type Options struct {
	Clock          render.Clock
	RequestTimeout time.Duration
	// MaxInFlight caps concurrently handled updates.
	MaxInFlight int
}

type App struct {
	bot      Sender
	rates    RateSource
	sessions session.Store

	clock   render.Clock
	timeout time.Duration
	now     func() time.Time

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// tails holds, per user, the done channel of the last dispatched update.
	mu    sync.Mutex
	tails map[int64]chan struct{}
}

func New(sender Sender, rs RateSource, store session.Store, opts Options) *App {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 16
	}
	return &App{
		bot:      sender,
		rates:    rs,
		sessions: store,
		clock:    opts.Clock,
		timeout:  opts.RequestTimeout,
		now:      time.Now,
		sem:      semaphore.NewWeighted(int64(opts.MaxInFlight)),
		tails:    make(map[int64]chan struct{}),
	}
}

// Run handles updates until ctx is done or the channel is closed, then waits for in-flight handlers.
// Different users are served concurrently; one user's updates run one at a time in arrival order.
func (a *App) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer a.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if err := a.sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			userID := senderOf(upd)
			prev, done := a.enqueue(userID)
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				defer a.sem.Release(1)
				defer a.dequeue(userID, done)
				if prev != nil {
					<-prev
				}
				a.HandleUpdate(ctx, upd)
			}()
		}
	}
}

// enqueue makes done the user's newest update and returns the one it must wait for.
func (a *App) enqueue(userID int64) (prev, done chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev = a.tails[userID]
	done = make(chan struct{})
	a.tails[userID] = done
	return prev, done
}

func (a *App) dequeue(userID int64, done chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tails[userID] == done {
		delete(a.tails, userID)
	}
	close(done)
}

func senderOf(upd tgbotapi.Update) int64 {
	switch {
	case upd.Message != nil && upd.Message.From != nil:
		return upd.Message.From.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.From.ID
	}
	return 0
}

func (a *App) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		a.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		a.handleCallback(ctx, upd.CallbackQuery)
	default:
		metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
	}
}

func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.From == nil || !msg.IsCommand() || msg.Command() != "start" {
		metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
		return
	}
	metrics.UpdatesTotal.WithLabelValues("command").Inc()

	a.putSession(ctx, msg.From.ID, session.New())
	a.editOrSendMenu(msg.Chat.ID, 0, render.Welcome())
}

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Always answer callback to remove spinner
	if _, err := a.bot.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.Debug().Err(err).Msg("answer callback")
	}
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}

	userID := q.From.ID
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID

	switch q.Data {
	case render.CbStartExchange:
		a.putSession(ctx, userID, session.New())
		a.editOrSendMenu(chatID, msgID, render.ChooseFrom())
		return
	case render.CbAbout:
		a.editOrSendMenu(chatID, msgID, render.About())
		return
	case render.CbBack:
		a.editOrSendMenu(chatID, msgID, render.MainMenu())
		return
	}

	prefix, code, ok := render.ParseSelection(q.Data)
	if !ok || !items.IsKnown(code) {
		log.Debug().Str("data", q.Data).Int64("user_id", userID).Msg("ignoring callback")
		return
	}

	st := a.getSession(ctx, userID)
	switch prefix {
	case render.PrefixFrom:
		st.FromCode = code
		st.Step = session.StepSelectTo
		st.UpdatedAt = a.now()
		a.putSession(ctx, userID, st)
		a.editOrSendMenu(chatID, msgID, render.ChooseTo(items.Describe(code)))
	case render.PrefixTo:
		if st.FromCode == "" || st.Step != session.StepSelectTo {
			// Stale keyboard or expired session: start over.
			a.putSession(ctx, userID, session.New())
			a.editOrSendMenu(chatID, msgID, render.ChooseFrom())
			return
		}
		st.UpdatedAt = a.now()
		a.putSession(ctx, userID, st)
		a.sendRate(ctx, chatID, msgID, st.FromCode, code)
	}
}

func (a *App) sendRate(ctx context.Context, chatID int64, msgID int, fromCode, toCode string) {
	a.editText(chatID, msgID, render.Loading)

	rctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	out := a.rates.Explain(rctx, fromCode, toCode)

	from, to := items.Describe(fromCode), items.Describe(toCode)
	var screen render.Screen
	if out.OK {
		screen = render.Rate(from, to, out.Rate, a.clock.Format(a.now()))
	} else {
		screen = render.Unavailable(from, to)
	}
	a.editOrSendMenu(chatID, msgID, screen)
}

// getSession returns the stored state or a fresh one; it never writes.
func (a *App) getSession(ctx context.Context, userID int64) session.State {
	st, ok, err := a.sessions.Get(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("load session")
	}
	if err != nil || !ok {
		return session.New()
	}
	return st
}

func (a *App) putSession(ctx context.Context, userID int64, st session.State) {
	if err := a.sessions.Put(ctx, userID, st); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("save session")
	}
}

func (a *App) editText(chatID int64, msgID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	if _, err := a.bot.Request(edit); err != nil {
		log.Debug().Err(err).Msg("edit message")
	}
}

func (a *App) editOrSendMenu(chatID int64, msgID int, s render.Screen) {
	kb := s.Keyboard
	if msgID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, msgID, s.Text)
		edit.ReplyMarkup = &kb
		edit.ParseMode = tgbotapi.ModeMarkdown
		edit.DisableWebPagePreview = true
		if _, err := a.bot.Request(edit); err == nil {
			return
		}
	}
	msg := tgbotapi.NewMessage(chatID, s.Text)
	msg.ReplyMarkup = kb
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := a.bot.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"calorie-bot/internal/db"
	"calorie-bot/internal/estimator"
	"calorie-bot/internal/i18n"
	"calorie-bot/internal/ledger"
	"calorie-bot/internal/models"
	"calorie-bot/internal/nutrition"
	"calorie-bot/internal/parser"
	"calorie-bot/pkg/keylock"
	"calorie-bot/pkg/logger"
)

// Inbound is one decoded chat message.
type Inbound struct {
	UserID   string
	ChatID   int64
	Username string
	Text     string
}

// Reply is what the notifier delivers. Buttons, when set, are offered as a
// one-row reply keyboard.
type Reply struct {
	UserID  string
	ChatID  int64
	Text    string
	Buttons []string
}

type MealEstimator interface {
	Estimate(ctx context.Context, text string, locale models.Locale, opts ...estimator.EstimateOption) (*estimator.Estimate, error)
}

type Checkout interface {
	CreateCheckoutSession(ctx context.Context, userID string) (sessionID, url string, err error)
}

type Store interface {
	db.ProfileStore
	db.StateStore
}

const maxDescriptionLen = 120

// confirmWords re-activate a saved profile from awaiting_profile.
var confirmWords = map[string]struct{}{
	"ok": {}, "ок": {}, "okay": {}, "yes": {}, "y": {},
	"да": {}, "ага": {}, "da": {}, "može": {}, "moze": {},
}

type ConversationOption func(*Conversation)

// WithBilling enables the daily quota of remote-model estimates for users
// without premium. checkout may be nil, then /premium reports that payments
// are unavailable.
func WithBilling(checkout Checkout, freeModelEstimates int) ConversationOption {
	return func(c *Conversation) {
		c.billing = true
		c.checkout = checkout
		c.freeModelEstimates = freeModelEstimates
	}
}

// Conversation routes messages through the per-user state machine.
type Conversation struct {
	store      Store
	ledger     *ledger.Ledger
	estimator  MealEstimator
	extractor  *parser.ProfileExtractor
	classifier *parser.Classifier
	locks      *keylock.Locker
	logger     *logger.Logger

	billing            bool
	checkout           Checkout
	freeModelEstimates int
}

func NewConversation(store Store, lg *ledger.Ledger, est MealEstimator, l *logger.Logger, opts ...ConversationOption) *Conversation {
	extractor := parser.NewProfileExtractor()
	c := &Conversation{
		store:      store,
		ledger:     lg,
		estimator:  est,
		extractor:  extractor,
		classifier: parser.NewClassifier(extractor),
		locks:      keylock.New(),
		logger:     l.Named("conversation"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// session is the per-message view of a user.
type session struct {
	in      Inbound
	state   *models.UserState
	profile *models.Profile
	msgs    *i18n.Messages
	log     *logger.Logger
}

func (s *session) reply(text string, buttons ...string) *Reply {
	return &Reply{UserID: s.in.UserID, ChatID: s.in.ChatID, Text: text, Buttons: buttons}
}

// Handle processes one message to completion and returns the reply. Messages
// of the same user are handled one at a time. Handle never fails: every
// error ends in a reply asking the user to try again.
func (c *Conversation) Handle(ctx context.Context, in Inbound) *Reply {
	unlock := c.locks.Lock(in.UserID)
	defer unlock()

	s := &session{in: in, log: c.logger.ForUser(in.UserID)}

	// Load user state
	st, err := c.store.GetState(ctx, in.UserID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		st = &models.UserState{UserID: in.UserID, State: models.StateAwaitingLanguage}
	case err != nil:
		s.log.Errorw("Failed to load state", "error", err)
		return s.reply(i18n.For("").InternalError)
	}
	st.ChatID = in.ChatID
	if in.Username != "" {
		st.Username = in.Username
	}
	s.state = st
	s.msgs = i18n.For(st.Locale)

	profile, err := c.store.GetProfile(ctx, in.UserID)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		s.log.Errorw("Failed to load profile", "error", err)
		return s.reply(s.msgs.InternalError)
	default:
		s.profile = profile
	}

	cls := c.classifier.Classify(in.Text, s.profile != nil)
	s.log.Infow("Message received", "state", st.State, "kind", cls.Kind.String(), "command", cls.Command)

	if cls.Kind == parser.KindCommand && cls.Command == "start" {
		return c.restart(ctx, s)
	}

	// Process based on current state
	switch st.State {
	case models.StateAwaitingProfile:
		return c.awaitingProfile(ctx, s, cls)
	case models.StateActive:
		return c.active(ctx, s, cls)
	default:
		return c.awaitingLanguage(ctx, s, cls)
	}
}

func (c *Conversation) restart(ctx context.Context, s *session) *Reply {
	s.state.State = models.StateAwaitingLanguage
	if err := c.store.SaveState(ctx, s.state); err != nil {
		s.log.Errorw("Failed to save state", "error", err)
		return s.reply(s.msgs.InternalError)
	}
	return s.reply(i18n.LanguageMenu, i18n.LanguageButtons...)
}

func (c *Conversation) awaitingLanguage(ctx context.Context, s *session, cls parser.Classification) *Reply {
	locale, ok := cls.Locale()
	if !ok {
		if s.state.State != models.StateAwaitingLanguage {
			s.state.State = models.StateAwaitingLanguage
			if err := c.store.SaveState(ctx, s.state); err != nil {
				s.log.Errorw("Failed to save state", "error", err)
			}
		}
		return s.reply(i18n.LanguageMenu, i18n.LanguageButtons...)
	}

	s.state.Locale = locale
	s.state.State = models.StateAwaitingProfile
	if err := c.store.SaveState(ctx, s.state); err != nil {
		s.log.Errorw("Failed to save state", "error", err)
		return s.reply(i18n.For(locale).InternalError)
	}
	s.msgs = i18n.For(locale)
	s.log.Infow("Language selected", "locale", locale)
	return s.reply(s.msgs.LanguageSet + "\n\n" + s.msgs.ProfileTemplate)
}

func (c *Conversation) awaitingProfile(ctx context.Context, s *session, cls parser.Classification) *Reply {
	if cls.Kind == parser.KindCommand {
		switch cls.Command {
		case "help":
			return s.reply(s.msgs.Help)
		case parser.CommandLanguage:
			return c.switchLanguage(ctx, s, cls, true)
		}
	}

	if s.profile != nil && isConfirmation(s.in.Text) {
		if err := c.activate(ctx, s); err != nil {
			return s.reply(s.msgs.InternalError)
		}
		return s.reply(fmt.Sprintf(s.msgs.ProfileReactivated, nutrition.Target(s.profile)))
	}

	profile, err := c.extractor.Extract(s.in.Text)
	if err != nil {
		s.log.Infow("Profile not recognised", "error", err)
		return s.reply(s.msgs.ProfileIncomplete + "\n\n" + s.msgs.ProfileTemplate)
	}
	return c.saveProfile(ctx, s, profile)
}

func (c *Conversation) active(ctx context.Context, s *session, cls parser.Classification) *Reply {
	switch cls.Kind {
	case parser.KindCommand:
		return c.command(ctx, s, cls)
	case parser.KindProfileCandidate:
		return c.saveProfile(ctx, s, *cls.Profile)
	case parser.KindFood:
		if s.profile == nil {
			return s.reply(s.msgs.NeedProfile + "\n\n" + s.msgs.ProfileTemplate)
		}
		return c.logMeal(ctx, s)
	default:
		s.log.Debugw("Message not understood", "error", cls.Err())
		return s.reply(s.msgs.Guidance)
	}
}

func (c *Conversation) command(ctx context.Context, s *session, cls parser.Classification) *Reply {
	switch cls.Command {
	case "status":
		return c.status(ctx, s)
	case "reset":
		if err := c.ledger.Reset(ctx, s.in.UserID, c.ledger.Today()); err != nil {
			s.log.Errorw("Failed to reset ledger", "error", err)
			return s.reply(s.msgs.InternalError)
		}
		return s.reply(s.msgs.ResetDone)
	case "weight":
		return c.updateWeight(ctx, s, cls.Args)
	case "premium":
		return c.premium(ctx, s)
	case parser.CommandLanguage:
		return c.switchLanguage(ctx, s, cls, false)
	default:
		return s.reply(s.msgs.Help)
	}
}

func (c *Conversation) switchLanguage(ctx context.Context, s *session, cls parser.Classification, withTemplate bool) *Reply {
	locale, _ := cls.Locale()
	s.state.Locale = locale
	if err := c.store.SaveState(ctx, s.state); err != nil {
		s.log.Errorw("Failed to save state", "error", err)
		return s.reply(s.msgs.InternalError)
	}
	s.msgs = i18n.For(locale)
	text := s.msgs.LanguageSet
	if withTemplate {
		text += "\n\n" + s.msgs.ProfileTemplate
	}
	return s.reply(text)
}

func (c *Conversation) activate(ctx context.Context, s *session) error {
	s.state.State = models.StateActive
	if err := c.store.SaveState(ctx, s.state); err != nil {
		s.log.Errorw("Failed to save state", "error", err)
		return err
	}
	return nil
}

func (c *Conversation) saveProfile(ctx context.Context, s *session, p models.Profile) *Reply {
	saved, err := c.store.UpsertProfile(ctx, s.in.UserID, p.Fields())
	if err != nil {
		s.log.Errorw("Failed to save profile", "error", err)
		return s.reply(s.msgs.InternalError)
	}
	if err := c.activate(ctx, s); err != nil {
		return s.reply(s.msgs.InternalError)
	}

	b := nutrition.Explain(*saved)
	s.log.Infow("Profile saved", "bmr", b.BMR, "tdee", b.TDEE, "target", b.Target)
	return s.reply(fmt.Sprintf(s.msgs.ProfileSaved, b.BMR, b.TDEE, b.Target))
}

func (c *Conversation) updateWeight(ctx context.Context, s *session, args string) *Reply {
	weight, err := c.extractor.ExtractWeight(args)
	if err != nil {
		return s.reply(s.msgs.WeightUsage)
	}

	saved, err := c.store.UpsertProfile(ctx, s.in.UserID, models.ProfileUpdate{WeightKG: &weight})
	if errors.Is(err, models.ErrIncompleteProfile) {
		return s.reply(s.msgs.NeedProfile + "\n\n" + s.msgs.ProfileTemplate)
	}
	if err != nil {
		s.log.Errorw("Failed to update weight", "error", err)
		return s.reply(s.msgs.InternalError)
	}
	s.log.Infow("Weight updated", "weight_kg", weight)
	return s.reply(fmt.Sprintf(s.msgs.WeightUpdated, weight, nutrition.Target(saved)))
}

func (c *Conversation) logMeal(ctx context.Context, s *session) *Reply {
	day := c.ledger.Today()

	var opts []estimator.EstimateOption
	quotaExhausted := false
	metered := c.billing && !s.state.Premium
	if metered {
		used, err := c.ledger.ModelEstimatesUsed(ctx, s.in.UserID, day)
		if err != nil {
			s.log.Errorw("Failed to read estimate quota", "error", err)
			return s.reply(s.msgs.InternalError)
		}
		if used >= c.freeModelEstimates {
			quotaExhausted = true
			opts = append(opts, estimator.WithoutModel())
		}
	}

	est, err := c.estimator.Estimate(ctx, s.in.Text, s.state.Locale, opts...)
	if err != nil {
		s.log.Infow("Meal not estimated", "error", err, "quota_exhausted", quotaExhausted)
		switch {
		case errors.Is(err, models.ErrOutOfBoundsEstimate):
			return s.reply(s.msgs.OutOfBounds)
		case quotaExhausted:
			return s.reply(s.msgs.QuotaExceeded)
		default:
			return s.reply(s.msgs.Redescribe)
		}
	}

	seq, total, err := c.ledger.RecordMeal(ctx, s.in.UserID, day, ledger.Meal{
		Description: s.in.Text,
		Kcal:        float64(est.Kcal),
		Macros:      est.Macros,
		Items:       est.Items,
		Source:      est.Source,
	})
	if err != nil {
		s.log.Errorw("Failed to record meal", "error", err)
		return s.reply(s.msgs.InternalError)
	}

	// Only a logged meal uses up the quota
	if metered && est.UsedModel {
		if err := c.ledger.CountModelEstimate(ctx, s.in.UserID, day); err != nil {
			s.log.Errorw("Failed to count model estimate", "error", err)
		}
	}

	target := nutrition.Target(s.profile)
	s.log.Infow("Meal logged", "seq", seq, "kcal", est.Kcal, "source", est.Source, "total_kcal", total, "target", target)
	return s.reply(c.mealText(s.msgs, seq, s.in.Text, est, total, target))
}

func (c *Conversation) mealText(msgs *i18n.Messages, seq int, description string, est *estimator.Estimate, total float64, target int) string {
	lines := []string{fmt.Sprintf(msgs.MealLogged, seq, shorten(description, maxDescriptionLen), est.Kcal)}
	if est.Clamped {
		lines = append(lines, fmt.Sprintf(msgs.MealClamped, est.RawKcal, est.Kcal))
	}
	if est.Source == models.SourceAnalysis {
		for _, item := range est.Items {
			lines = append(lines, fmt.Sprintf(msgs.MealItem, item.Name, int(math.Round(item.Kcal))))
		}
	}
	if est.Macros != nil {
		lines = append(lines, fmt.Sprintf(msgs.MealMacros, est.Macros.ProteinG, est.Macros.FatG, est.Macros.CarbsG))
	}
	if est.Comment != "" {
		lines = append(lines, fmt.Sprintf(msgs.MealComment, est.Comment))
	}
	lines = append(lines, "", budgetLine(msgs, target, models.Totals{Kcal: total}))
	return strings.Join(lines, "\n")
}

func budgetLine(msgs *i18n.Messages, target int, totals models.Totals) string {
	remaining, over := ledger.Budget(target, totals)
	if over > 0 {
		return fmt.Sprintf(msgs.OverTarget, over, target)
	}
	return fmt.Sprintf(msgs.Remaining, remaining, target)
}

func (c *Conversation) status(ctx context.Context, s *session) *Reply {
	sum, err := c.ledger.Summary(ctx, s.in.UserID, c.ledger.Today())
	if err != nil {
		s.log.Errorw("Failed to load summary", "error", err)
		return s.reply(s.msgs.InternalError)
	}

	target := nutrition.Target(s.profile)
	lines := []string{fmt.Sprintf(s.msgs.Status, int(math.Round(sum.Totals.Kcal)), target, sum.MealCount)}
	if t := sum.Totals; t.ProteinG > 0 || t.FatG > 0 || t.CarbsG > 0 {
		lines = append(lines, fmt.Sprintf(s.msgs.StatusMacros, t.ProteinG, t.FatG, t.CarbsG))
	}
	lines = append(lines, budgetLine(s.msgs, target, sum.Totals))
	if s.profile == nil {
		lines = append(lines, "", s.msgs.NeedProfile)
	}
	return s.reply(strings.Join(lines, "\n"))
}

func (c *Conversation) premium(ctx context.Context, s *session) *Reply {
	if s.state.Premium {
		return s.reply(s.msgs.PremiumActive)
	}
	if !c.billing || c.checkout == nil {
		return s.reply(s.msgs.PremiumUnavailable)
	}

	sessionID, url, err := c.checkout.CreateCheckoutSession(ctx, s.in.UserID)
	if err != nil {
		s.log.Errorw("Failed to create checkout session", "error", err)
		return s.reply(s.msgs.PremiumUnavailable)
	}
	s.state.StripeSessionID = sessionID
	if err := c.store.SaveState(ctx, s.state); err != nil {
		s.log.Errorw("Failed to save checkout session", "error", err, "session_id", sessionID)
	}
	s.log.Infow("Checkout session created", "session_id", sessionID)
	return s.reply(fmt.Sprintf(s.msgs.PremiumLink, url))
}

// ActivatePremium marks the user premium after a completed payment and
// returns the confirmation to deliver.
func (c *Conversation) ActivatePremium(ctx context.Context, userID, sessionID string) (*Reply, error) {
	unlock := c.locks.Lock(userID)
	defer unlock()

	log := c.logger.ForUser(userID)
	if err := c.store.SetPremium(ctx, userID, true); err != nil {
		return nil, fmt.Errorf("failed to set premium: %w", err)
	}
	st, err := c.store.GetState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if sessionID != "" && st.StripeSessionID != sessionID {
		log.Warnw("Checkout session differs from the last one issued", "session_id", sessionID, "last_session_id", st.StripeSessionID)
	}
	log.Infow("Premium activated", "session_id", sessionID)

	return &Reply{
		UserID: userID,
		ChatID: st.ChatID,
		Text:   i18n.For(st.Locale).PremiumActivated,
	}, nil
}

func isConfirmation(text string) bool {
	word := strings.TrimFunc(strings.ToLower(strings.TrimSpace(text)), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	_, ok := confirmWords[word]
	return ok
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

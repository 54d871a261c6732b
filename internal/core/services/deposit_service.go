package services

import (
	"context"
	"strings"
	"sync"

	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/pkg/logger"
)

// Stream names accepted by DepositService.Reset
const (
	StreamRoster   = "roster"
	StreamDetail   = "detail"
	StreamMutation = "mutation"
)

// DepositService drives the roster, detail and mutation streams the screens
// render. Every call goes through the shared SessionService.
type DepositService struct {
	session   *SessionService
	client    ResourceClient
	selection *Selection

	roster   *domain.Stream[domain.Roster]
	detail   *domain.Stream[domain.StudentDetail]
	mutation *domain.Stream[domain.Ack]

	mu    sync.RWMutex
	known map[string]domain.StudentDetail
}

// NewDepositService creates a new deposit service
func NewDepositService(session *SessionService, client ResourceClient) *DepositService {
	return &DepositService{
		session:   session,
		client:    client,
		selection: NewSelection(),
		roster:    domain.NewStream[domain.Roster](StreamRoster, true),
		detail:    domain.NewStream[domain.StudentDetail](StreamDetail, true),
		mutation:  domain.NewStream[domain.Ack](StreamMutation, false),
		known:     make(map[string]domain.StudentDetail),
	}
}

func (s *DepositService) Roster() *domain.Stream[domain.Roster] {
	return s.roster
}

func (s *DepositService) Detail() *domain.Stream[domain.StudentDetail] {
	return s.detail
}

func (s *DepositService) Mutation() *domain.Stream[domain.Ack] {
	return s.mutation
}

func (s *DepositService) Selection() *Selection {
	return s.selection
}

// FetchRoster loads the advisor's students into the roster stream
func (s *DepositService) FetchRoster(ctx context.Context) domain.OperationState[domain.Roster] {
	ticket := s.roster.Begin("")
	roster, err := Authorized(ctx, s.session, "fetch_roster", s.client.Roster)
	state := domain.Result(roster, err)
	s.finish(ctx, "fetch_roster", func() bool { return s.roster.Finish(ticket, state) }, err)
	return state
}

// FetchDetail loads one student's components into the detail stream. If
// another student is requested before this one returns, this result is
// dropped from the stream.
func (s *DepositService) FetchDetail(ctx context.Context, nim string) domain.OperationState[domain.StudentDetail] {
	ticket := s.detail.Begin(nim)
	detail, err := s.loadDetail(ctx, nim)
	state := domain.Result(detail, err)
	s.finish(ctx, "fetch_detail", func() bool { return s.detail.Finish(ticket, state) }, err)
	return state
}

func (s *DepositService) loadDetail(ctx context.Context, nim string) (domain.StudentDetail, error) {
	if err := domain.ValidateNIM(nim); err != nil {
		return domain.StudentDetail{}, err
	}
	detail, err := Authorized(ctx, s.session, "fetch_detail",
		func(ctx context.Context, token string) (domain.StudentDetail, error) {
			return s.client.Detail(ctx, token, nim)
		})
	if err != nil {
		return domain.StudentDetail{}, err
	}
	s.mu.Lock()
	s.known[nim] = detail
	s.mu.Unlock()
	return detail, nil
}

// Known returns the last detail fetched for nim
func (s *DepositService) Known(nim string) (domain.StudentDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.known[nim]
	return d, ok
}

// Submit sends components for validation. Duplicate component ids are sent
// once; components already validated are rejected locally. On success the
// detail and roster are refetched before the mutation stream settles.
func (s *DepositService) Submit(ctx context.Context, nim string, items []domain.SubmitItem) domain.OperationState[domain.Ack] {
	ticket := s.mutation.Begin(nim)
	ack, err := s.submit(ctx, nim, items)
	state := domain.Result(ack, err)
	s.finish(ctx, "submit", func() bool { return s.mutation.Finish(ticket, state) }, err)
	return state
}

func (s *DepositService) submit(ctx context.Context, nim string, items []domain.SubmitItem) (domain.Ack, error) {
	if err := domain.ValidateNIM(nim); err != nil {
		return domain.Ack{}, err
	}
	batch, err := s.prepareBatch(nim, items)
	if err != nil {
		return domain.Ack{}, err
	}
	logger.For(ctx, "submit").WithField("nim", nim).WithField("components", len(batch)).Info("📝 Submitting deposits")

	ack, err := Authorized(ctx, s.session, "submit", func(ctx context.Context, token string) (domain.Ack, error) {
		return s.client.Submit(ctx, token, nim, batch)
	})
	if err != nil {
		return domain.Ack{}, err
	}
	s.reconcile(ctx, nim)
	return ack, nil
}

func (s *DepositService) prepareBatch(nim string, items []domain.SubmitItem) ([]domain.SubmitItem, error) {
	known, haveKnown := s.Known(nim)
	seen := make(map[string]struct{}, len(items))
	batch := make([]domain.SubmitItem, 0, len(items))
	for _, item := range items {
		item.ComponentID = strings.TrimSpace(item.ComponentID)
		if item.ComponentID == "" {
			return nil, domain.Validationf("component id is required")
		}
		if _, dup := seen[item.ComponentID]; dup {
			continue
		}
		seen[item.ComponentID] = struct{}{}
		if haveKnown {
			if c, ok := known.Component(item.ComponentID); ok {
				if c.Validated {
					return nil, domain.Validationf("component %s is already validated", c.Name)
				}
				if item.Name == "" {
					item.Name = c.Name
				}
			}
		}
		batch = append(batch, item)
	}
	if len(batch) == 0 {
		return nil, domain.Validationf("no components selected")
	}
	return batch, nil
}

// Cancel deletes one validation. The deposit id must be known; it is never
// guessed from the component id. When the student's detail has been fetched,
// the deposit must appear on one of its components.
func (s *DepositService) Cancel(ctx context.Context, nim string, item domain.CancelItem) domain.OperationState[domain.Ack] {
	ticket := s.mutation.Begin(nim)
	ack, err := s.cancel(ctx, nim, item)
	state := domain.Result(ack, err)
	s.finish(ctx, "cancel", func() bool { return s.mutation.Finish(ticket, state) }, err)
	return state
}

func (s *DepositService) cancel(ctx context.Context, nim string, item domain.CancelItem) (domain.Ack, error) {
	if err := domain.ValidateNIM(nim); err != nil {
		return domain.Ack{}, err
	}
	item.DepositID = strings.TrimSpace(item.DepositID)
	if item.DepositID == "" {
		return domain.Ack{}, domain.Validationf("deposit id is required")
	}
	if known, ok := s.Known(nim); ok {
		c, found := known.Deposit(item.DepositID)
		if !found {
			return domain.Ack{}, domain.Validationf("deposit %s does not belong to %s", item.DepositID, nim)
		}
		if item.ComponentID == "" {
			item.ComponentID = c.ComponentID
		}
		if item.Name == "" {
			item.Name = c.Name
		}
	}
	logger.For(ctx, "cancel").WithField("nim", nim).WithField("deposit_id", item.DepositID).Info("🗑️ Cancelling deposit")

	ack, err := Authorized(ctx, s.session, "cancel", func(ctx context.Context, token string) (domain.Ack, error) {
		return s.client.Cancel(ctx, token, nim, item)
	})
	if err != nil {
		return domain.Ack{}, err
	}
	s.reconcile(ctx, nim)
	return ack, nil
}

// SubmitSelection submits the pending selection for nim and clears it on success
func (s *DepositService) SubmitSelection(ctx context.Context, nim string) domain.OperationState[domain.Ack] {
	state := s.Submit(ctx, nim, s.selection.Items(nim))
	if state.Status == domain.StatusSuccess {
		s.selection.Clear(nim)
	}
	return state
}

// Select adds a component to the pending selection. Components known to be
// validated cannot be selected.
func (s *DepositService) Select(nim string, item domain.SubmitItem) error {
	if err := domain.ValidateNIM(nim); err != nil {
		return err
	}
	if strings.TrimSpace(item.ComponentID) == "" {
		return domain.Validationf("component id is required")
	}
	if known, ok := s.Known(nim); ok {
		c, found := known.Component(item.ComponentID)
		if !found {
			return domain.Validationf("component %s does not belong to %s", item.ComponentID, nim)
		}
		if c.Validated {
			return domain.Validationf("component %s is already validated", c.Name)
		}
		if item.Name == "" {
			item.Name = c.Name
		}
	}
	s.selection.Add(nim, item)
	return nil
}

// reconcile refetches the student and the roster after a write. Their
// outcomes land on their own streams.
func (s *DepositService) reconcile(ctx context.Context, nim string) {
	s.FetchDetail(ctx, nim)
	s.FetchRoster(ctx)
}

// Reset returns a terminal stream to Idle. Unknown names report false.
func (s *DepositService) Reset(stream string) bool {
	switch stream {
	case StreamRoster:
		return s.roster.Reset()
	case StreamDetail:
		return s.detail.Reset()
	case StreamMutation:
		return s.mutation.Reset()
	}
	return false
}

func (s *DepositService) ResetRoster() bool   { return s.roster.Reset() }
func (s *DepositService) ResetDetail() bool   { return s.detail.Reset() }
func (s *DepositService) ResetMutation() bool { return s.mutation.Reset() }

// Clear drops every stream, the detail cache and the pending selections
func (s *DepositService) Clear() {
	s.roster.Clear()
	s.detail.Clear()
	s.mutation.Clear()
	s.selection.ClearAll()
	s.mu.Lock()
	s.known = make(map[string]domain.StudentDetail)
	s.mu.Unlock()
}

func (s *DepositService) finish(ctx context.Context, op string, apply func() bool, err error) {
	log := logger.For(ctx, op)
	if !apply() {
		log.Debug("⏭️ Result superseded, not published")
		return
	}
	if err != nil {
		log.WithField("kind", domain.KindOf(err)).WithField("error", domain.Message(err)).Warn("❌ Operation failed")
		return
	}
	log.Debug("✅ Operation succeeded")
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/certready/certready-backend/internal/model"
)

// --- MockAccessGrantStore ---

type MockAccessGrantStore struct {
	mock.Mock
}

func (m *MockAccessGrantStore) GetByUserAndCategory(ctx context.Context, userID uuid.UUID, category model.AccessCategory) (*model.AccessGrant, error) {
	args := m.Called(ctx, userID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessGrant), args.Error(1)
}

func (m *MockAccessGrantStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AccessGrant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessGrant), args.Error(1)
}

func (m *MockAccessGrantStore) GrantOrExtend(ctx context.Context, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error) {
	args := m.Called(ctx, userID, category, durationDays, transactionID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockAccessGrantStore) RevokeIfCurrent(ctx context.Context, userID uuid.UUID, category model.AccessCategory, transactionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, category, transactionID)
	return args.Bool(0), args.Error(1)
}

// --- MockTransactionStore ---

type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) Create(ctx context.Context, t *model.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionStore) ListByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.Transaction, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Transaction), args.Get(1).(int64), args.Error(2)
}

// ConfirmByExternalRef mirrors the repository's transactional contract: on a
// first delivery the grant callback runs, and a callback error aborts the
// whole confirmation as a rollback would.
func (m *MockTransactionStore) ConfirmByExternalRef(ctx context.Context, externalRef, eventID string, to model.TransactionStatus, completedAt time.Time, grant func(ctx context.Context, tx pgx.Tx, t *model.Transaction) (time.Time, error)) (*model.Transaction, bool, error) {
	args := m.Called(ctx, externalRef, eventID, to, completedAt)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	t := args.Get(0).(*model.Transaction)
	already := args.Bool(1)
	if err := args.Error(2); err != nil {
		return nil, already, err
	}
	if !already && grant != nil {
		expiresAt, err := grant(ctx, nil, t)
		if err != nil {
			return nil, false, err
		}
		t.AccessExpiresAt = &expiresAt
	}
	return t, already, nil
}

func (m *MockTransactionStore) SetAccessExpiresAt(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	args := m.Called(ctx, id, expiresAt)
	return args.Error(0)
}

func (m *MockTransactionStore) UpdateManualFields(ctx context.Context, t *model.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- MockProductStore ---

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) GetByID(ctx context.Context, id uuid.UUID) (*model.AccessProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessProduct), args.Error(1)
}

func (m *MockProductStore) GetLatestByCode(ctx context.Context, code string) (*model.AccessProduct, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessProduct), args.Error(1)
}

func (m *MockProductStore) UpsertByCode(ctx context.Context, p *model.AccessProduct) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductStore) ListLatest(ctx context.Context) ([]model.AccessProduct, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessProduct), args.Error(1)
}

// --- MockBillingUserStore ---

type MockBillingUserStore struct {
	mock.Mock
}

func (m *MockBillingUserStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// --- MockEntitlementLedger ---

type MockEntitlementLedger struct {
	mock.Mock
}

func (m *MockEntitlementLedger) GrantOrExtend(ctx context.Context, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error) {
	args := m.Called(ctx, userID, category, durationDays, transactionID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockEntitlementLedger) GrantOrExtendTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, category model.AccessCategory, durationDays int, transactionID uuid.UUID) (time.Time, error) {
	args := m.Called(ctx, userID, category, durationDays, transactionID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockEntitlementLedger) RevokeIfCurrent(ctx context.Context, userID uuid.UUID, category model.AccessCategory, transactionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, category, transactionID)
	return args.Bool(0), args.Error(1)
}

// --- MockCheckoutProvider ---

type MockCheckoutProvider struct {
	mock.Mock
}

func (m *MockCheckoutProvider) CreateCheckout(t *model.Transaction, user *model.User, product *model.AccessProduct) (string, error) {
	args := m.Called(t, user, product)
	return args.String(0), args.Error(1)
}

// --- MockExamStore ---

type MockExamStore struct {
	mock.Mock
}

func (m *MockExamStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Exam), args.Error(1)
}

func (m *MockExamStore) Create(ctx context.Context, e *model.Exam) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockExamStore) Update(ctx context.Context, e *model.Exam) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockExamStore) List(ctx context.Context, page, perPage int, activeOnly bool) ([]model.Exam, int64, error) {
	args := m.Called(ctx, page, perPage, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Exam), args.Get(1).(int64), args.Error(2)
}

func (m *MockExamStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- MockParticipationStore ---

type MockParticipationStore struct {
	mock.Mock
}

func (m *MockParticipationStore) GetByExamAndUser(ctx context.Context, examID, userID uuid.UUID) (*model.ExamParticipation, error) {
	args := m.Called(ctx, examID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExamParticipation), args.Error(1)
}

func (m *MockParticipationStore) Create(ctx context.Context, p *model.ExamParticipation) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockParticipationStore) StartPause(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockParticipationStore) EndPause(ctx context.Context, id uuid.UUID, at time.Time, pausedMs int64, cutShort bool) error {
	args := m.Called(ctx, id, at, pausedMs, cutShort)
	return args.Error(0)
}

func (m *MockParticipationStore) Complete(ctx context.Context, id uuid.UUID, status model.ParticipationStatus, score int, completedAt time.Time, answers []model.ExamAnswer) error {
	args := m.Called(ctx, id, status, score, completedAt, answers)
	return args.Error(0)
}

func (m *MockParticipationStore) UpsertAnswer(ctx context.Context, examID, userID, questionID uuid.UUID, answer string) error {
	args := m.Called(ctx, examID, userID, questionID, answer)
	return args.Error(0)
}

func (m *MockParticipationStore) ListAnswers(ctx context.Context, participationID uuid.UUID) ([]model.ExamAnswer, error) {
	args := m.Called(ctx, participationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExamAnswer), args.Error(1)
}

func (m *MockParticipationStore) ListExpiredInProgress(ctx context.Context, now time.Time) ([]model.ExamParticipation, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExamParticipation), args.Error(1)
}

func (m *MockParticipationStore) CountInProgress(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockParticipationStore) Leaderboard(ctx context.Context, examID uuid.UUID) ([]model.LeaderboardEntry, error) {
	args := m.Called(ctx, examID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeaderboardEntry), args.Error(1)
}

// --- MockQuestionStore ---

type MockQuestionStore struct {
	mock.Mock
}

func (m *MockQuestionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Question), args.Error(1)
}

func (m *MockQuestionStore) CorrectAnswers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]string), args.Error(1)
}

func (m *MockQuestionStore) CountByDomain(ctx context.Context, domain *string) (int, error) {
	args := m.Called(ctx, domain)
	return args.Int(0), args.Error(1)
}

func (m *MockQuestionStore) SampleIDs(ctx context.Context, n int, domain *string) ([]uuid.UUID, error) {
	args := m.Called(ctx, n, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// --- MockAccessChecker ---

type MockAccessChecker struct {
	mock.Mock
}

func (m *MockAccessChecker) HasAccess(ctx context.Context, user *model.User, category model.AccessCategory) (bool, error) {
	args := m.Called(ctx, user, category)
	return args.Bool(0), args.Error(1)
}

// --- MockTrainingStore ---

type MockTrainingStore struct {
	mock.Mock
}

func (m *MockTrainingStore) GetByID(ctx context.Context, id uuid.UUID) (*model.TrainingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrainingSession), args.Error(1)
}

func (m *MockTrainingStore) GetInProgressByUser(ctx context.Context, userID uuid.UUID) (*model.TrainingSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrainingSession), args.Error(1)
}

func (m *MockTrainingStore) Create(ctx context.Context, s *model.TrainingSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockTrainingStore) UpsertAnswers(ctx context.Context, sessionID uuid.UUID, answers []model.TrainingAnswer) error {
	args := m.Called(ctx, sessionID, answers)
	return args.Error(0)
}

func (m *MockTrainingStore) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.TrainingAnswer, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TrainingAnswer), args.Error(1)
}

func (m *MockTrainingStore) Finish(ctx context.Context, id uuid.UUID, status model.TrainingStatus, score *int, completedAt time.Time) error {
	args := m.Called(ctx, id, status, score, completedAt)
	return args.Error(0)
}

func (m *MockTrainingStore) ScoreAnswers(ctx context.Context, sessionID uuid.UUID, key map[uuid.UUID]string) (int, int, error) {
	args := m.Called(ctx, sessionID, key)
	return args.Int(0), args.Int(1), args.Error(2)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/livingvectors/lv-api/internal/database"
	"github.com/livingvectors/lv-api/internal/metrics"
	"github.com/livingvectors/lv-api/internal/oauth"
	"go.uber.org/zap"
)

type LinkDecision string

const (
	// DecisionLinkExisting attaches a new provider account to a user found by email.
	DecisionLinkExisting LinkDecision = "link_existing"
	// DecisionCreateUser creates the user and its first account together.
	DecisionCreateUser LinkDecision = "create_user"
	// DecisionReturning refreshes an account that is already linked.
	DecisionReturning LinkDecision = "returning"
	// DecisionDegraded marks a sign-in resolved by a plain read after execution kept failing.
	DecisionDegraded LinkDecision = "degraded"
)

var ErrMissingAccountID = errors.New("provider account id is required")

// LinkState is what the store knows about an assertion before anything is written.
type LinkState struct {
	UserIDByEmail *uuid.UUID
	AccountUserID *uuid.UUID
}

// Decide picks the branch for a sign-in. An existing account always wins over an email
// match so a returning sign-in never re-links.
func Decide(state LinkState) LinkDecision {
	switch {
	case state.AccountUserID != nil:
		return DecisionReturning
	case state.UserIDByEmail != nil:
		return DecisionLinkExisting
	default:
		return DecisionCreateUser
	}
}

type LinkResult struct {
	UserID   uuid.UUID
	Decision LinkDecision
}

type AccountLinker struct {
	db         *database.DB
	logger     *zap.Logger
	attempts   int
	newBackOff func() backoff.BackOff
}

func NewAccountLinker(db *database.DB, logger *zap.Logger, attempts int) *AccountLinker {
	if attempts < 1 {
		attempts = 1
	}
	return &AccountLinker{
		db:       db,
		logger:   logger,
		attempts: attempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
	}
}

// WithBackOff replaces the retry schedule.
func (l *AccountLinker) WithBackOff(newBackOff func() backoff.BackOff) *AccountLinker {
	l.newBackOff = newBackOff
	return l
}

// Link makes the store reflect the assertion and returns the user that owns the account.
// Execution is retried; once retries are exhausted the sign-in still succeeds if the
// identity can be resolved without writing.
func (l *AccountLinker) Link(ctx context.Context, a *oauth.Assertion) (*LinkResult, error) {
	if a.Account.ProviderAccountID == "" {
		return nil, ErrMissingAccountID
	}

	var result *LinkResult
	operation := func() error {
		r, err := l.execute(ctx, a)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		result = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		l.logger.Warn("account link attempt failed, retrying",
			zap.String("provider", a.Account.Provider),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	schedule := backoff.WithContext(backoff.WithMaxRetries(l.newBackOff(), uint64(l.attempts-1)), ctx)
	err := backoff.RetryNotify(operation, schedule, notify)
	if err == nil {
		metrics.RecordAccountLink(string(result.Decision))
		return result, nil
	}

	metrics.RecordAccountLinkFailure()

	userID, resolveErr := l.resolve(ctx, a)
	if resolveErr != nil {
		l.logger.Error("account link failed",
			zap.String("provider", a.Account.Provider),
			zap.Int("attempts", l.attempts),
			zap.Error(err),
			zap.NamedError("resolve_error", resolveErr),
		)
		return nil, fmt.Errorf("failed to link account: %w", err)
	}

	l.logger.Error("account link failed, continuing with resolved identity",
		zap.String("provider", a.Account.Provider),
		zap.String("user_id", userID.String()),
		zap.Int("attempts", l.attempts),
		zap.Error(err),
	)
	metrics.RecordAccountLink(string(DecisionDegraded))
	return &LinkResult{UserID: userID, Decision: DecisionDegraded}, nil
}

func (l *AccountLinker) execute(ctx context.Context, a *oauth.Assertion) (*LinkResult, error) {
	profile := oauth.ParseProfile(a.Profile)
	image := profile.PictureURL
	if image == nil {
		image = nullableString(a.User.AvatarURL)
	}

	var result LinkResult
	err := l.db.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		state, err := loadLinkState(ctx, tx, a)
		if err != nil {
			return err
		}

		result.Decision = Decide(state)

		switch result.Decision {
		case DecisionReturning:
			result.UserID = *state.AccountUserID
		case DecisionLinkExisting:
			result.UserID = *state.UserIDByEmail
		case DecisionCreateUser:
			err := tx.QueryRow(ctx, `
				INSERT INTO users (name, email, image, first_name, last_name)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, nullableString(a.User.Name), nullableString(a.User.Email), image,
				profile.FirstName, profile.LastName,
			).Scan(&result.UserID)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
		}

		owner, err := upsertAccount(ctx, tx, result.UserID, a, profile)
		if err != nil {
			return err
		}
		result.UserID = owner

		if image == nil || result.Decision == DecisionCreateUser {
			return nil
		}

		imageSQL := `UPDATE users SET image = COALESCE($1, image), updated_at = NOW() WHERE id = $2`
		if result.Decision == DecisionLinkExisting {
			imageSQL = `UPDATE users SET image = COALESCE(image, $1), updated_at = NOW() WHERE id = $2`
		}
		if _, err := tx.Exec(ctx, imageSQL, image, result.UserID); err != nil {
			return fmt.Errorf("failed to update user image: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func loadLinkState(ctx context.Context, tx pgx.Tx, a *oauth.Assertion) (LinkState, error) {
	var state LinkState

	if a.User.Email != "" {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, a.User.Email).Scan(&id)
		switch {
		case err == nil:
			state.UserIDByEmail = &id
		case !errors.Is(err, pgx.ErrNoRows):
			return state, fmt.Errorf("failed to look up user by email: %w", err)
		}
	}

	var owner uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT user_id FROM accounts WHERE provider = $1 AND provider_account_id = $2
	`, a.Account.Provider, a.Account.ProviderAccountID).Scan(&owner)
	switch {
	case err == nil:
		state.AccountUserID = &owner
	case !errors.Is(err, pgx.ErrNoRows):
		return state, fmt.Errorf("failed to look up account: %w", err)
	}

	return state, nil
}

// upsertAccount writes the account row. A conflicting row keeps its owner and old values
// for anything the provider did not send this time.
func upsertAccount(ctx context.Context, tx pgx.Tx, userID uuid.UUID, a *oauth.Assertion, profile oauth.ProfileData) (uuid.UUID, error) {
	creds := a.Account
	var owner uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO accounts (
			user_id, type, provider, provider_account_id, access_token, refresh_token, id_token,
			token_type, scope, session_state, expires_at, email, first_name, last_name, picture_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (provider, provider_account_id) DO UPDATE SET
			access_token = COALESCE(EXCLUDED.access_token, accounts.access_token),
			refresh_token = COALESCE(EXCLUDED.refresh_token, accounts.refresh_token),
			id_token = COALESCE(EXCLUDED.id_token, accounts.id_token),
			token_type = COALESCE(EXCLUDED.token_type, accounts.token_type),
			scope = COALESCE(EXCLUDED.scope, accounts.scope),
			session_state = COALESCE(EXCLUDED.session_state, accounts.session_state),
			expires_at = COALESCE(EXCLUDED.expires_at, accounts.expires_at),
			email = COALESCE(EXCLUDED.email, accounts.email),
			first_name = COALESCE(EXCLUDED.first_name, accounts.first_name),
			last_name = COALESCE(EXCLUDED.last_name, accounts.last_name),
			picture_url = COALESCE(EXCLUDED.picture_url, accounts.picture_url),
			updated_at = NOW()
		RETURNING user_id
	`,
		userID, creds.Type, creds.Provider, creds.ProviderAccountID,
		nullableString(creds.AccessToken), nullableString(creds.RefreshToken), nullableString(creds.IDToken),
		nullableString(creds.TokenType), nullableString(creds.Scope), nullableString(creds.SessionState),
		creds.ExpiresAt, nullableString(a.User.Email),
		profile.FirstName, profile.LastName, profile.PictureURL,
	).Scan(&owner)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert account: %w", err)
	}
	return owner, nil
}

// resolve finds the identity an assertion refers to without writing anything.
func (l *AccountLinker) resolve(ctx context.Context, a *oauth.Assertion) (uuid.UUID, error) {
	var id uuid.UUID
	err := l.db.Pool.QueryRow(ctx, `
		SELECT user_id FROM accounts WHERE provider = $1 AND provider_account_id = $2
	`, a.Account.Provider, a.Account.ProviderAccountID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, err
	}

	if a.User.Email == "" {
		return uuid.Nil, ErrUserNotFound
	}

	err = l.db.Pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, a.User.Email).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrUserNotFound
	}
	return id, err
}

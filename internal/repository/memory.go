package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/chanwitp/identity-api/internal/model"
)

// memoryTokenRepository is an in-memory reference implementation of
// TokenRepository. It preserves the same consume atomicity as the MongoDB
// implementation and backs tests and single-node deployments.
type memoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*model.Token
}

// NewMemoryTokenRepository creates an in-memory token repository.
func NewMemoryTokenRepository() TokenRepository {
	return &memoryTokenRepository{
		tokens: make(map[string]*model.Token),
	}
}

func tokenKey(value string, tokenType model.TokenType) string {
	return string(tokenType) + ":" + value
}

func (r *memoryTokenRepository) CreateToken(_ context.Context, token *model.Token) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	token.CreatedAt = now
	token.UpdatedAt = now
	if token.ID.IsZero() {
		token.ID = bson.NewObjectID()
	}

	stored := *token
	r.tokens[tokenKey(token.Value, token.Type)] = &stored

	return token, nil
}

func (r *memoryTokenRepository) GetTokenByValueAndType(
	_ context.Context,
	value string,
	tokenType model.TokenType,
) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tokens[tokenKey(value, tokenType)]
	if !ok {
		return nil, ErrNotFound
	}

	token := *stored
	return &token, nil
}

func (r *memoryTokenRepository) GetTokenByUserAndType(
	_ context.Context,
	userID bson.ObjectID,
	tokenType model.TokenType,
) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stored := range r.tokens {
		if stored.UserID == userID && stored.Type == tokenType {
			token := *stored
			return &token, nil
		}
	}

	return nil, ErrNotFound
}

func (r *memoryTokenRepository) ConsumeToken(
	_ context.Context,
	value string,
	tokenType model.TokenType,
) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tokenKey(value, tokenType)
	stored, ok := r.tokens[key]
	if !ok {
		return nil, ErrNotFound
	}

	delete(r.tokens, key)

	token := *stored
	return &token, nil
}

func (r *memoryTokenRepository) DeleteToken(_ context.Context, value string, tokenType model.TokenType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, tokenKey(value, tokenType))
	return nil
}

func (r *memoryTokenRepository) DeleteUserTokens(
	_ context.Context,
	userID bson.ObjectID,
	tokenType model.TokenType,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, stored := range r.tokens {
		if stored.UserID == userID && stored.Type == tokenType {
			delete(r.tokens, key)
		}
	}

	return nil
}

func (r *memoryTokenRepository) DeleteExpiredTokens(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var deleted int64
	for key, stored := range r.tokens {
		if stored.ExpiresAt.Before(now) {
			delete(r.tokens, key)
			deleted++
		}
	}

	return deleted, nil
}

// memoryUserRepository is an in-memory reference implementation of
// UserRepository, used by tests.
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*model.User
}

// NewMemoryUserRepository creates an in-memory user repository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		users: make(map[bson.ObjectID]*model.User),
	}
}

func (r *memoryUserRepository) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}

	stored := *user
	r.users[user.ID] = &stored

	return user, nil
}

func (r *memoryUserRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[objectID]
	if !ok {
		return nil, ErrNotFound
	}

	user := *stored
	return &user, nil
}

func (r *memoryUserRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stored := range r.users {
		if stored.Email == email {
			user := *stored
			return &user, nil
		}
	}

	return nil, ErrNotFound
}

func (r *memoryUserRepository) UpdateUser(
	_ context.Context,
	id string,
	params UpdateUserParams,
) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[objectID]
	if !ok {
		return nil, ErrNotFound
	}

	if params.Email != nil {
		stored.Email = *params.Email
	}
	if params.PasswordHash != nil {
		stored.PasswordHash = *params.PasswordHash
	}
	if params.EmailVerified != nil {
		stored.EmailVerified = *params.EmailVerified
	}
	if params.TwoFactorEnabled != nil {
		stored.TwoFactorEnabled = *params.TwoFactorEnabled
	}
	if params.RequestedNewEmail != nil {
		stored.RequestedNewEmail = params.RequestedNewEmail
	}
	if params.ClearRequestedNewEmail {
		stored.RequestedNewEmail = nil
	}
	if params.RecoveryCodes != nil {
		stored.RecoveryCodes = slices.Clone(*params.RecoveryCodes)
	}
	stored.UpdatedAt = time.Now()

	user := *stored
	return &user, nil
}

func (r *memoryUserRepository) DeleteUser(_ context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[objectID]
	if !ok {
		return nil, ErrNotFound
	}

	delete(r.users, objectID)

	user := *stored
	return &user, nil
}

func (r *memoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stored := range r.users {
		if stored.Email == email {
			return true, nil
		}
	}

	return false, nil
}

func (r *memoryUserRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stored := range r.users {
		if stored.Name == name {
			return true, nil
		}
	}

	return false, nil
}

func (r *memoryUserRepository) RemoveRecoveryCode(_ context.Context, id string, code string) (bool, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[objectID]
	if !ok {
		return false, ErrNotFound
	}

	index := slices.Index(stored.RecoveryCodes, code)
	if index < 0 {
		return false, nil
	}

	stored.RecoveryCodes = slices.Delete(stored.RecoveryCodes, index, index+1)
	stored.UpdatedAt = time.Now()

	return true, nil
}

package memory

import (
    "context"
    "strings"
    "time"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/repository"
    "github.com/iliyamo/stagepass/internal/utils"
)

// Users exposes the user operations of a Store with the same method set as
// repository.UserRepo.
type Users struct{ s *Store }

// Users returns the user view of s.
func (s *Store) Users() *Users { return &Users{s: s} }

func (u *Users) Create(_ context.Context, name, email, password, role string, cost int) (uint64, error) {
    email = utils.NormalizeEmail(email)
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    u.s.mu.Lock()
    defer u.s.mu.Unlock()
    for _, existing := range u.s.users {
        if existing.Email == email {
            return 0, repository.ErrEmailExists
        }
    }
    u.s.nextUserID++
    id := u.s.nextUserID
    u.s.users[id] = model.User{
        ID:           id,
        Name:         strings.TrimSpace(name),
        Email:        email,
        PasswordHash: hash,
        Role:         role,
        CreatedAt:    u.s.now().UTC(),
    }
    return id, nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
    email = utils.NormalizeEmail(email)
    u.s.mu.RLock()
    defer u.s.mu.RUnlock()
    for _, user := range u.s.users {
        if user.Email == email {
            return user, nil
        }
    }
    return model.User{}, repository.ErrUserNotFound
}

func (u *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
    u.s.mu.RLock()
    defer u.s.mu.RUnlock()
    user, ok := u.s.users[id]
    if !ok {
        return model.User{}, repository.ErrUserNotFound
    }
    return user, nil
}

// Tokens exposes refresh token storage with the same method set as
// repository.TokenRepo.
type Tokens struct{ s *Store }

// Tokens returns the refresh token view of s.
func (s *Store) Tokens() *Tokens { return &Tokens{s: s} }

func (t *Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
    t.s.mu.Lock()
    defer t.s.mu.Unlock()
    t.s.nextTokenID++
    t.s.tokens[tokenHash] = &model.RefreshToken{
        ID:        t.s.nextTokenID,
        UserID:    userID,
        TokenHash: tokenHash,
        ExpiresAt: exp.UTC(),
        CreatedAt: t.s.now().UTC(),
    }
    return nil
}

func (t *Tokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
    t.s.mu.RLock()
    defer t.s.mu.RUnlock()
    tok, ok := t.s.tokens[tokenHash]
    if !ok || tok.RevokedAt != nil || t.s.now().UTC().After(tok.ExpiresAt) {
        return 0, repository.ErrTokenInvalid
    }
    return tok.UserID, nil
}

func (t *Tokens) RevokeByHash(_ context.Context, tokenHash string) error {
    t.s.mu.Lock()
    defer t.s.mu.Unlock()
    if tok, ok := t.s.tokens[tokenHash]; ok && tok.RevokedAt == nil {
        now := t.s.now().UTC()
        tok.RevokedAt = &now
    }
    return nil
}

func (t *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
    t.s.mu.Lock()
    defer t.s.mu.Unlock()
    now := t.s.now().UTC()
    for _, tok := range t.s.tokens {
        if tok.UserID == userID && tok.RevokedAt == nil {
            revoked := now
            tok.RevokedAt = &revoked
        }
    }
    return nil
}

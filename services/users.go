package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/policy"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,password"`
	// Role is optional; reader when empty. admin cannot be self-assigned.
	Role string `json:"role"`
}

type UpdateProfileInput struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,password"`
	Role     *string `json:"role"`
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *models.User `json:"user"`
}

var errRoleField = map[string]string{"role": "must be one of admin, author, reader"}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	role := models.RoleReader
	if strings.TrimSpace(in.Role) != "" {
		r, err := models.ParseRole(in.Role)
		if err != nil {
			return nil, Validation("validation failed", errRoleField)
		}
		if r == models.RoleAdmin {
			return nil, Forbidden("cannot register as admin")
		}
		role = r
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.store.wrap("register", err)
	}

	user := models.User{Username: in.Username, Email: in.Email, PasswordHash: hash, Role: role}
	err = s.store.InTx(ctx, "register", func(tx *gorm.DB) error {
		if err := ensureUnique(tx, 0, &in.Username, &in.Email); err != nil {
			return err
		}
		err := tx.Create(&user).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Conflict("username or email already registered")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	recordMutation("user", "create")
	return &user, nil
}

// ensureUnique gives readable conflicts for taken usernames and emails.
// The unique indexes stay authoritative under races.
func ensureUnique(tx *gorm.DB, selfID uint, username, email *string) error {
	taken := func(column, value string) (bool, error) {
		var n int64
		err := tx.Model(&models.User{}).Where(column+" = ? AND id <> ?", value, selfID).Count(&n).Error
		return n > 0, err
	}
	if username != nil {
		if ok, err := taken("username", *username); err != nil || ok {
			if err != nil {
				return err
			}
			return Conflict("username already registered")
		}
	}
	if email != nil {
		if ok, err := taken("email", *email); err != nil || ok {
			if err != nil {
				return err
			}
			return Conflict("email already registered")
		}
	}
	return nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if s.tokens == nil {
		return nil, Unexpected(errors.New("token issuer not configured"))
	}
	var user models.User
	err := s.store.DB(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Unauthenticated("incorrect username or password")
	}
	if err != nil {
		return nil, s.store.wrap("login", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, Unauthenticated("incorrect username or password")
	}

	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.store.wrap("issue token", err)
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        &user,
	}, nil
}

// ResolvePrincipal turns a bearer token into the identity of a still existing user.
func (s *Service) ResolvePrincipal(ctx context.Context, token string) (*models.Identity, error) {
	if s.tokens == nil {
		return nil, Unexpected(errors.New("token issuer not configured"))
	}
	if s.blacklist.IsRevoked(ctx, token) {
		return nil, &Error{Kind: KindUnauthenticated, Message: "token revoked", Err: ErrTokenRevoked}
	}
	userID, _, err := s.tokens.Resolve(token)
	if err != nil {
		return nil, Unauthenticated("could not validate credentials")
	}
	var user models.User
	err = s.store.DB(ctx).Select("id", "username", "role").Take(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Unauthenticated("could not validate credentials")
	}
	if err != nil {
		return nil, s.store.wrap("resolve principal", err)
	}
	return user.Identity(), nil
}

// Logout revokes token until it would have expired.
func (s *Service) Logout(ctx context.Context, token string) error {
	if s.tokens == nil {
		return Unexpected(errors.New("token issuer not configured"))
	}
	_, expiresAt, err := s.tokens.Resolve(token)
	if err != nil {
		return Unauthenticated("could not validate credentials")
	}
	if err := s.blacklist.Revoke(ctx, token, expiresAt); err != nil {
		return s.store.wrap("logout", err)
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, principal *models.Identity) (*models.User, error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	return s.GetUser(ctx, principal.ID)
}

// UpdateProfile changes principal's own account. Only admins may change a role.
func (s *Service) UpdateProfile(ctx context.Context, principal *models.Identity, in UpdateProfileInput) (*models.User, error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		in.Username = &v
	}
	if in.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &v
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Role != nil {
		role, err := models.ParseRole(*in.Role)
		if err != nil {
			return nil, Validation("validation failed", errRoleField)
		}
		if role != principal.Role && !principal.IsAdmin() {
			return nil, Forbidden("only administrators can change roles")
		}
		updates["role"] = string(role)
	}
	if in.Username != nil {
		updates["username"] = *in.Username
	}
	if in.Email != nil {
		updates["email"] = *in.Email
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, s.store.wrap("update profile", err)
		}
		updates["password_hash"] = hash
	}

	err := s.store.InTx(ctx, "update profile", func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Take(&user, principal.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("user not found")
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := ensureUnique(tx, user.ID, in.Username, in.Email); err != nil {
			return err
		}
		err := tx.Model(&user).Updates(updates).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Conflict("username or email already registered")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	recordMutation("user", "update")
	return s.GetUser(ctx, principal.ID)
}

// GetUser returns the public profile of a user.
func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.store.DB(ctx).Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("user not found")
	}
	if err != nil {
		return nil, s.store.wrap("get user", err)
	}
	return &user, nil
}

// DeleteUser removes an account and, through foreign keys, its posts, comments and likes.
// Admins may delete anyone; other users only themselves.
func (s *Service) DeleteUser(ctx context.Context, principal *models.Identity, id uint) error {
	if principal == nil {
		return Unauthenticated("authentication required")
	}
	err := s.store.InTx(ctx, "delete user", func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").Take(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("user not found")
			}
			return err
		}
		if principal.ID != user.ID && !policy.CanManageUsers(principal) {
			return Forbidden("not enough permissions to delete this user")
		}
		return tx.Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		return err
	}
	recordMutation("user", "delete")
	return nil
}

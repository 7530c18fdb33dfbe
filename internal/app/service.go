package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"inkwell/api/internal/auth"
	"inkwell/api/internal/authpw"
	"inkwell/api/internal/config"
	"inkwell/api/internal/media"
	"inkwell/api/internal/policy"
	"inkwell/api/internal/search"
	"inkwell/api/internal/store"
	"inkwell/api/internal/tags"
	"inkwell/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByID(context.Context, string) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	UpdateUserProfile(ctx context.Context, userID, displayName, bio, profileImageURL string) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	UserContentCounts(context.Context, string) (int, int, error)
	DeleteUser(context.Context, string) (bool, error)

	ListCategories(context.Context) ([]store.Category, error)
	GetCategory(context.Context, string) (store.Category, error)
	InsertCategory(context.Context, store.Category) error
	DeleteCategory(context.Context, string) (bool, error)
	ListTags(context.Context) ([]store.Tag, error)
	InsertTag(context.Context, store.Tag) error

	InsertPost(ctx context.Context, post store.Post, tagNames []string) error
	GetPost(context.Context, string) (store.Post, error)
	IncrementViewCount(context.Context, string) (int, error)
	ListPublished(context.Context, store.PostFilter) ([]store.Post, error)
	ListByAuthor(context.Context, string) ([]store.Post, error)
	UpdatePost(ctx context.Context, postID string, update store.PostUpdate, tagNames []string) (store.Post, error)
	DeletePost(context.Context, string) (bool, error)

	InsertComment(context.Context, store.Comment) error
	GetComment(context.Context, string) (store.Comment, error)
	CountReplies(context.Context, string) (int, error)
	DeleteComment(context.Context, string) (bool, error)
	ListPostComments(context.Context, string) ([]store.Comment, error)

	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error

	Ping(ctx context.Context) error
}

// sessionStore holds refresh tokens. Redis-backed in production, with a
// Postgres adapter as fallback when Redis is not configured.
type sessionStore interface {
	SaveSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeSession(ctx context.Context, tokenHash string) error
}

// pgSessionStore adapts the relational refresh_sessions table to the
// sessionStore interface.
type pgSessionStore struct {
	store dataStore
}

func (p pgSessionStore) SaveSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return p.store.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (p pgSessionStore) LookupSession(ctx context.Context, tokenHash string) (store.User, error) {
	return p.store.LookupRefreshSession(ctx, tokenHash)
}

func (p pgSessionStore) RevokeSession(ctx context.Context, tokenHash string) error {
	return p.store.RevokeRefreshSession(ctx, tokenHash)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	accounts *authpw.Service
	search   *search.Service
	media    *media.Store
	validate *validator.Validate
}

func New(cfg config.Config, dataStore *store.PostgresStore, searchService *search.Service) *Service {
	return newService(cfg, dataStore, pgSessionStore{store: dataStore}, searchService)
}

func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, searchService *search.Service) *Service {
	return newService(cfg, dataStore, sessions, searchService)
}

func newService(cfg config.Config, ds dataStore, sessions sessionStore, searchService *search.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    ds,
		sessions: sessions,
		accounts: authpw.NewService(ds),
		search:   searchService,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// SetMediaStore attaches object storage for featured images. Optional.
func (s *Service) SetMediaStore(m *media.Store) {
	s.media = m
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap seeds the default admin account, categories, and tags on an
// empty database. Safe to run on every start.
func (s *Service) Bootstrap(ctx context.Context) error {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(categories) > 0 {
		return nil
	}

	if _, err := s.store.GetUserByEmail(ctx, "admin@blog.com"); err != nil {
		hash, err := authpw.HashPassword("ChangeMe123!")
		if err != nil {
			return err
		}
		if err := s.store.CreateUser(ctx, store.User{
			ID:           util.NewID("usr"),
			Email:        "admin@blog.com",
			DisplayName:  "Administrator",
			PasswordHash: hash,
			Role:         string(policy.RoleAdmin),
		}); err != nil {
			return err
		}
	}

	seeds := []struct {
		Name        string
		Description string
	}{
		{Name: "Technology", Description: "Posts about technology and gadgets"},
		{Name: "Travel", Description: "Travel stories and destination guides"},
		{Name: "Food", Description: "Recipes and restaurant reviews"},
		{Name: "Lifestyle", Description: "Everyday life, habits, and wellness"},
		{Name: "Programming", Description: "Software development articles and tutorials"},
	}
	for _, seed := range seeds {
		if err := s.store.InsertCategory(ctx, store.Category{
			ID:          util.NewID("cat"),
			Name:        seed.Name,
			Description: seed.Description,
			Slug:        tags.Slugify(seed.Name),
		}); err != nil {
			return err
		}
	}

	for _, name := range []string{"Go", "Tutorial", "Opinion", "Review", "News"} {
		if err := s.store.InsertTag(ctx, store.Tag{
			ID:   util.NewID("tag"),
			Name: name,
			Slug: tags.Slugify(name),
		}); err != nil {
			return err
		}
	}
	return nil
}

type SignUpInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
}

func (s *Service) SignUp(ctx context.Context, input SignUpInput) (Session, error) {
	if err := s.validateInput(input); err != nil {
		return Session{}, err
	}
	user, err := s.accounts.SignUp(ctx, authpw.SignUpRequest{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		if errors.Is(err, authpw.ErrEmailTaken) {
			return Session{}, domainError(http.StatusConflict, "CONSTRAINT_VIOLATION", "Email already registered", nil)
		}
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.accounts.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) ChangePassword(ctx context.Context, session Session, current, next string) error {
	if err := s.accounts.ChangePassword(ctx, session.UserID, current, next); err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Current password is incorrect", nil)
		}
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Name:  user.DisplayName,
		Email: user.Email,
		Role:  user.Role,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Email:     claims.Email,
		Role:      claims.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// validateInput runs struct tag validation and converts failures into a
// 422 with per-field details.
func (s *Service) validateInput(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid input", nil)
	}
	details := make(map[string]string, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		details[fieldError.Field()] = fieldError.Tag()
	}
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid input", details)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/yarnshop/internal/auth"
	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/repository"
)

// ErrInvalidCredentials возвращается при неверной паре почта/пароль.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", model.ErrUnauthorized)

// RegisterInput содержит данные регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput содержит данные входа. GuestCart содержит гостевую корзину клиента,
// которая сливается с серверной после успешного входа: для совпадающих позиций
// остаётся большее количество.
type LoginInput struct {
	Email     string
	Password  string
	GuestCart []model.CartLine
}

// LoginResult содержит пользователя и выданную ему сессию.
type LoginResult struct {
	User    model.User
	Cookie  string
	Session model.Session
}

// ProfileUpdate содержит изменения профиля; nil-поля и пустой пароль не меняются.
type ProfileUpdate struct {
	Name     *string
	Address  *string
	Phone    *string
	Avatar   *string
	Password string
}

// AdminAccount описывает администратора, создаваемого при первом запуске.
type AdminAccount struct {
	Email    string
	Password string
	Name     string
}

// BootstrapResult сообщает, что было создано при запуске.
type BootstrapResult struct {
	AdminCreated  bool
	CatalogSeeded bool
}

// Register регистрирует нового пользователя с ролью user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" || name == "" {
		return model.User{}, fmt.Errorf("missing fields: %w", model.ErrInvalidInput)
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.CreateUser(ctx, model.User{
		Email:     email,
		Name:      name,
		Password:  hashed,
		Role:      model.RoleUser,
		Wishlist:  []int64{},
		Cart:      []model.CartLine{},
		CreatedAt: s.now(),
	})
}

// Login проверяет учётные данные и выдаёт новую сессию.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	allowed, err := s.limiter.Allow(ctx, in.Email)
	if err != nil {
		return LoginResult{}, err
	}
	if !allowed {
		s.metrics.LoginFailure("rate_limited")
		return LoginResult{}, model.ErrRateLimited
	}

	u, err := s.repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.LoginFailure("unknown_user")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !auth.VerifyPassword(in.Password, u.Password) {
		s.metrics.LoginFailure("bad_password")
		return LoginResult{}, ErrInvalidCredentials
	}

	guest, err := normalizeCart(in.GuestCart)
	if err != nil {
		return LoginResult{}, err
	}

	cookie, sess, err := s.sessions.Create(ctx, u.ID, u.Role)
	if err != nil {
		return LoginResult{}, err
	}

	if len(guest) > 0 {
		u, err = s.repo.UpdateUser(ctx, u.ID, func(x *model.User) error {
			x.Cart = model.MergeGuestCart(x.Cart, guest)
			return nil
		})
		if err != nil {
			_ = s.sessions.Destroy(ctx, cookie)
			return LoginResult{}, err
		}
	}

	return LoginResult{User: u, Cookie: cookie, Session: sess}, nil
}

// Logout отзывает сессию. Повторный вызов ошибкой не считается.
func (s *Service) Logout(ctx context.Context, cookieValue string) error {
	return s.sessions.Destroy(ctx, cookieValue)
}

// Session возвращает действующую сессию по значению cookie.
func (s *Service) Session(ctx context.Context, cookieValue string) (model.Session, bool) {
	return s.sessions.Get(ctx, cookieValue)
}

// Me возвращает текущего пользователя.
func (s *Service) Me(ctx context.Context, userID int64) (model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateProfile обновляет имя, контакты и, при необходимости, пароль пользователя.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (model.User, error) {
	var hashed string
	if upd.Password != "" {
		var err error
		hashed, err = auth.HashPassword(upd.Password)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
	}

	return s.repo.UpdateUser(ctx, userID, func(u *model.User) error {
		if upd.Name != nil {
			u.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Address != nil {
			u.Profile.Address = *upd.Address
		}
		if upd.Phone != nil {
			u.Profile.Phone = *upd.Phone
		}
		if upd.Avatar != nil {
			u.Profile.Avatar = *upd.Avatar
		}
		if hashed != "" {
			u.Password = hashed
		}
		return nil
	})
}

// Bootstrap создаёт администратора, если его ещё нет, и заполняет пустой каталог.
// Администратор создаётся, только если заданы почта и пароль.
func (s *Service) Bootstrap(ctx context.Context, admin AdminAccount) (BootstrapResult, error) {
	var res BootstrapResult

	if admin.Email != "" && admin.Password != "" {
		hashed, err := auth.HashPassword(admin.Password)
		if err != nil {
			return res, fmt.Errorf("hash admin password: %w", err)
		}
		name := admin.Name
		if name == "" {
			name = "Administrator"
		}
		res.AdminCreated, err = s.repo.EnsureAdmin(ctx, model.User{
			Email:     admin.Email,
			Name:      name,
			Password:  hashed,
			Wishlist:  []int64{},
			Cart:      []model.CartLine{},
			CreatedAt: s.now(),
		})
		if err != nil {
			return res, fmt.Errorf("ensure admin: %w", err)
		}
	}

	seeded, err := s.repo.SeedProducts(ctx, sampleCatalog())
	if err != nil {
		return res, fmt.Errorf("seed products: %w", err)
	}
	res.CatalogSeeded = seeded

	return res, nil
}

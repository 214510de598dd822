package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/repository"
)

// ViewCart возвращает корзину пользователя. Для неизвестного пользователя
// возвращается пустая корзина.
func (s *Service) ViewCart(ctx context.Context, userID int64) ([]model.CartLine, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return []model.CartLine{}, nil
		}
		return nil, err
	}
	return cartOrEmpty(u.Cart), nil
}

// AddToCart добавляет позицию в корзину или увеличивает количество уже
// имеющейся позиции с тем же товаром и вариантом.
func (s *Service) AddToCart(ctx context.Context, userID int64, line model.CartLine) ([]model.CartLine, error) {
	if err := validateLine(line); err != nil {
		return nil, err
	}

	u, err := s.repo.UpdateUser(ctx, userID, func(u *model.User) error {
		u.Cart = model.AddLine(u.Cart, line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cartOrEmpty(u.Cart), nil
}

// ReplaceCart целиком заменяет корзину. Повторяющиеся позиции складываются.
func (s *Service) ReplaceCart(ctx context.Context, userID int64, cart []model.CartLine) ([]model.CartLine, error) {
	next, err := normalizeCart(cart)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.UpdateUser(ctx, userID, func(u *model.User) error {
		u.Cart = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cartOrEmpty(u.Cart), nil
}

// AddToWishlist добавляет товар в избранное. Повторное добавление ничего не меняет.
func (s *Service) AddToWishlist(ctx context.Context, userID, productID int64) ([]int64, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("product id must be positive: %w", model.ErrInvalidInput)
	}

	u, err := s.repo.UpdateUser(ctx, userID, func(u *model.User) error {
		if !slices.Contains(u.Wishlist, productID) {
			u.Wishlist = append(u.Wishlist, productID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u.Wishlist, nil
}

// RemoveFromWishlist удаляет товар из избранного. Отсутствующий товар ошибкой не считается.
func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID int64) ([]int64, error) {
	u, err := s.repo.UpdateUser(ctx, userID, func(u *model.User) error {
		u.Wishlist = slices.DeleteFunc(u.Wishlist, func(id int64) bool { return id == productID })
		return nil
	})
	if err != nil {
		return nil, err
	}
	if u.Wishlist == nil {
		return []int64{}, nil
	}
	return u.Wishlist, nil
}

func validateLine(l model.CartLine) error {
	if l.ProductID <= 0 {
		return fmt.Errorf("product id must be positive: %w", model.ErrInvalidInput)
	}
	if l.Qty <= 0 {
		return fmt.Errorf("quantity must be positive: %w", model.ErrInvalidInput)
	}
	if l.Qty > model.MaxLineQty {
		return fmt.Errorf("quantity must not exceed %d: %w", model.MaxLineQty, model.ErrInvalidInput)
	}
	return nil
}

func normalizeCart(cart []model.CartLine) ([]model.CartLine, error) {
	for _, l := range cart {
		if err := validateLine(l); err != nil {
			return nil, err
		}
	}
	return model.MergeCart(nil, cart), nil
}

func cartOrEmpty(cart []model.CartLine) []model.CartLine {
	if cart == nil {
		return []model.CartLine{}
	}
	return cart
}

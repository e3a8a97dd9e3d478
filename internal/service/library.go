package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/voyagen/darteve/internal/models"
	"github.com/voyagen/darteve/internal/store"
)

// Favorites returns the saved channels in the order they were added.
func (c *Catalog) Favorites(ctx context.Context) ([]models.Channel, error) {
	favs, err := store.GetJSON[[]models.Channel](ctx, c.store, store.KeyFavorites)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("favorites: %w", err)
	}
	if favs == nil {
		favs = []models.Channel{}
	}
	return favs, nil
}

// ToggleFavorite adds ch to the favorites, or removes it when a channel with
// the same id is already saved. It reports whether ch is now a favorite.
func (c *Catalog) ToggleFavorite(ctx context.Context, ch models.Channel) (bool, error) {
	if ch.ID == "" {
		return false, fmt.Errorf("%w: id is required", ErrInvalidChannel)
	}
	c.libMu.Lock()
	defer c.libMu.Unlock()

	favs, err := c.Favorites(ctx)
	if err != nil {
		return false, err
	}
	saved := lo.ContainsBy(favs, func(f models.Channel) bool { return f.ID == ch.ID })
	if saved {
		favs = lo.Reject(favs, func(f models.Channel, _ int) bool { return f.ID == ch.ID })
	} else {
		favs = append(favs, ch)
	}
	if err := store.SetJSON(ctx, c.store, store.KeyFavorites, favs); err != nil {
		return false, fmt.Errorf("favorites: %w", err)
	}
	c.playlist.Invalidate(ctx, models.CategoryFavorites)
	return !saved, nil
}

// CustomCategories returns the user-added playlists.
func (c *Catalog) CustomCategories(ctx context.Context) ([]models.Category, error) {
	cats, err := store.GetJSON[[]models.Category](ctx, c.store, store.KeyCustomPlaylists)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("custom playlists: %w", err)
	}
	for i := range cats {
		cats[i].Custom = true
	}
	return cats, nil
}

// AddCustomCategory saves a user playlist under a new "custom-<unix ms>" id.
func (c *Catalog) AddCustomCategory(ctx context.Context, name, rawURL string) (models.Category, error) {
	name = strings.TrimSpace(name)
	rawURL = strings.TrimSpace(rawURL)
	if name == "" {
		return models.Category{}, fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.Category{}, fmt.Errorf("%w: playlist url must be http(s)", ErrInvalidCategory)
	}

	c.libMu.Lock()
	defer c.libMu.Unlock()

	cats, err := c.CustomCategories(ctx)
	if err != nil {
		return models.Category{}, err
	}
	id := fmt.Sprintf("custom-%d", time.Now().UnixMilli())
	for lo.ContainsBy(cats, func(cat models.Category) bool { return cat.ID == id }) {
		id += "-1"
	}
	cat := models.Category{ID: id, Name: name, PlaylistURL: rawURL, Custom: true}
	if err := store.SetJSON(ctx, c.store, store.KeyCustomPlaylists, append(cats, cat)); err != nil {
		return models.Category{}, fmt.Errorf("custom playlists: %w", err)
	}
	return cat, nil
}

// DeleteCustomCategory removes a user playlist and its cached channels.
func (c *Catalog) DeleteCustomCategory(ctx context.Context, id string) error {
	c.libMu.Lock()
	defer c.libMu.Unlock()

	cats, err := c.CustomCategories(ctx)
	if err != nil {
		return err
	}
	if !lo.ContainsBy(cats, func(cat models.Category) bool { return cat.ID == id }) {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	cats = lo.Reject(cats, func(cat models.Category, _ int) bool { return cat.ID == id })
	if err := store.SetJSON(ctx, c.store, store.KeyCustomPlaylists, cats); err != nil {
		return fmt.Errorf("custom playlists: %w", err)
	}
	c.playlist.Invalidate(ctx, id)
	return nil
}

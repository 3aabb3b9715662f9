package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

// ErrTokenNotFound - token unknown or expired out of Redis.
var ErrTokenNotFound = errors.New("redis: token not found")

const categoryListKey = "catalog:categories"

// ===== [SESSION OPERATIONS] =====

func (c *Client) StoreSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	tokenKey := fmt.Sprintf("token:%s", session.Token)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := c.rdb.Set(ctx, tokenKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

func (c *Client) GetSession(ctx context.Context, token string) (*models.Session, error) {
	tokenKey := fmt.Sprintf("token:%s", token)

	data, err := c.rdb.Get(ctx, tokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (c *Client) DeleteSession(ctx context.Context, token string) error {
	tokenKey := fmt.Sprintf("token:%s", token)

	if err := c.rdb.Del(ctx, tokenKey).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// ===== [CATEGORY CACHE OPERATIONS] =====

func (c *Client) CacheCategoryList(ctx context.Context, categories []string, ttl time.Duration) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	if err := c.rdb.Set(ctx, categoryListKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache categories: %w", err)
	}

	return nil
}

// GetCachedCategoryList returns (nil, nil) on a cache miss; callers
// fall back to the store.
func (c *Client) GetCachedCategoryList(ctx context.Context) ([]string, error) {
	data, err := c.rdb.Get(ctx, categoryListKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached categories: %w", err)
	}

	var categories []string
	if err := json.Unmarshal([]byte(data), &categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}

	return categories, nil
}

func (c *Client) InvalidateCategoryList(ctx context.Context) error {
	if err := c.rdb.Del(ctx, categoryListKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate category cache: %w", err)
	}
	return nil
}

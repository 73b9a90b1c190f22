package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amanigreeva/Sociosphere-sub001/internal/config"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

const userCacheTTL = 5 * time.Minute

type Client struct {
	Cli *redis.Client
}

func NewRedis(cfg *config.Config) (*Client, error) {
	r := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{Cli: r}, nil
}

func (c *Client) Close() error { return c.Cli.Close() }

func (c *Client) SetPresence(ctx context.Context, userID string, online bool) error {
	key := "presence:" + userID
	if !online {
		return c.Cli.Del(ctx, key).Err()
	}
	return c.Cli.Set(ctx, key, "1", 0).Err()
}

func (c *Client) GetPresence(ctx context.Context, userID string) (bool, error) {
	s, err := c.Cli.Get(ctx, "presence:"+userID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s == "1", nil
}

// GetUser returns the cached directory entry, or nil on a miss.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	raw, err := c.Cli.Get(ctx, "user:"+userID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) SetUser(ctx context.Context, u *models.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return c.Cli.Set(ctx, "user:"+u.ID, raw, userCacheTTL).Err()
}

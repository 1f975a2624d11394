package transport

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/chhz0/polytasks/types"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var (
	ChangeChannel     = "changes"
	DiscoveryKey      = "polytasks_nodes"
	HeartbeatInterval = 5 * time.Second
	NodeTimeout       = 15 * time.Second
)

// RedisPubSub 通过Redis Pub/Sub在多个进程间传递变更信号，
// 同时用有序集合维护活跃节点列表
type RedisPubSub struct {
	client        *redis.Client
	ctx           context.Context
	cancel        context.CancelFunc
	nodeID        string
	channelPrefix string
	logger        *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type RedisOptions struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
	Logger        *slog.Logger
}

func NewRedisTransport(opts RedisOptions) (*RedisPubSub, error) {
	ctx, cancel := context.WithCancel(context.Background())

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 1,
		IdleTimeout:  5 * time.Minute,
	})

	// 验证连接
	if err := client.Ping(ctx).Err(); err != nil {
		cancel()
		_ = client.Close()
		return nil, err
	}

	prefix := opts.ChannelPrefix
	if prefix == "" {
		prefix = "polytasks_"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rs := &RedisPubSub{
		client:        client,
		ctx:           ctx,
		cancel:        cancel,
		nodeID:        uuid.New().String(),
		channelPrefix: prefix,
		logger:        logger,
	}

	if err := rs.RegisterNode(ctx, rs.nodeID); err != nil {
		cancel()
		_ = client.Close()
		return nil, err
	}

	// 启动后台协程
	rs.wg.Add(1)
	go rs.heartbeatLoop()

	return rs, nil
}

func (rs *RedisPubSub) NodeID() string {
	return rs.nodeID
}

func (rs *RedisPubSub) channel() string {
	return rs.channelPrefix + ChangeChannel
}

func (rs *RedisPubSub) discoveryKey() string {
	return rs.channelPrefix + DiscoveryKey
}

// 发布变更信号
func (rs *RedisPubSub) Publish(ctx context.Context, change types.Change) error {
	if rs.isClosed() {
		return ErrClosed
	}

	data, err := change.Serialize()
	if err != nil {
		return err
	}
	return rs.client.Publish(ctx, rs.channel(), data).Err()
}

// 订阅变更流；返回前等待订阅确认，避免丢失随后发布的信号
func (rs *RedisPubSub) Subscribe(ctx context.Context) (<-chan types.Change, error) {
	if rs.isClosed() {
		return nil, ErrClosed
	}

	pubsub := rs.client.Subscribe(ctx, rs.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	ch := make(chan types.Change, subscriberBuffer)
	msgs := pubsub.Channel()

	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		defer close(ch)
		defer pubsub.Close()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				change, err := types.DeserializeChange([]byte(msg.Payload))
				if err != nil {
					rs.logger.Warn("discard malformed change", "error", err)
					continue
				}
				select {
				case ch <- change:
				case <-ctx.Done():
					return
				case <-rs.ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			case <-rs.ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// 节点注册与发现
func (rs *RedisPubSub) RegisterNode(ctx context.Context, nodeID string) error {
	// 使用有序集合维护节点列表
	return rs.client.ZAdd(ctx, rs.discoveryKey(), &redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: nodeID,
	}).Err()
}

// Peers 返回最近有心跳的节点
func (rs *RedisPubSub) Peers(ctx context.Context) ([]string, error) {
	return rs.client.ZRangeByScore(ctx, rs.discoveryKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(time.Now().Add(-NodeTimeout).Unix(), 10),
		Max: "+inf",
	}).Result()
}

// 关闭连接
func (rs *RedisPubSub) Close() error {
	rs.mu.Lock()
	if rs.closed {
		rs.mu.Unlock()
		return nil
	}
	rs.closed = true
	rs.mu.Unlock()

	rs.cancel()
	rs.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = rs.client.ZRem(ctx, rs.discoveryKey(), rs.nodeID).Err()
	return rs.client.Close()
}

func (rs *RedisPubSub) isClosed() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.closed
}

// 心跳循环
func (rs *RedisPubSub) heartbeatLoop() {
	defer rs.wg.Done()

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// 更新有序集合中的节点时间戳，清理过期节点
			if err := rs.RegisterNode(rs.ctx, rs.nodeID); err != nil {
				rs.logger.Debug("heartbeat failed", "node", rs.nodeID, "error", err)
			}
			rs.client.ZRemRangeByScore(rs.ctx, rs.discoveryKey(), "-inf",
				strconv.FormatInt(time.Now().Add(-NodeTimeout).Unix(), 10))

		case <-rs.ctx.Done():
			return
		}
	}
}

package clients

import (
	"context"
	"sync"

	config "github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

const userAgent = "med-caption"

// PointsQuerier часть *qdrant.Client, которой пользуется сервис.
type PointsQuerier interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	Close() error
}

// DialFunc открывает подключение к Qdrant.
type DialFunc func(cfg *config.QdrantCfg) (PointsQuerier, error)

// QdrantSession хранит подключения к Qdrant по алиасу.
// Подключение открывается при первом обращении и переиспользуется всеми запросами.
type QdrantSession struct {
	mu    sync.Mutex
	cfg   *config.QdrantCfg
	dial  DialFunc
	conns map[string]PointsQuerier
}

func NewQdrantSession(cfg *config.QdrantCfg, dial DialFunc) *QdrantSession {
	if dial == nil {
		dial = DialQdrant
	}

	return &QdrantSession{
		cfg:   cfg,
		dial:  dial,
		conns: make(map[string]PointsQuerier),
	}
}

// DialQdrant создаёт gRPC-клиент Qdrant.
func DialQdrant(cfg *config.QdrantCfg) (PointsQuerier, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		APIKey:      cfg.ApiKey,
		UseTLS:      cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{grpc.WithUserAgent(userAgent)},
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return client, nil
}

// Points возвращает подключение для алиаса из конфигурации, открывая его при необходимости.
// Неудачное подключение не запоминается, следующий вызов попробует снова.
func (s *QdrantSession) Points(ctx context.Context) (PointsQuerier, error) {
	const op = "QdrantSession.Points"

	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if conn, ok := s.conns[s.cfg.Alias]; ok {
		return conn, nil
	}

	conn, err := s.dial(s.cfg)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	s.conns[s.cfg.Alias] = conn
	return conn, nil
}

// Close закрывает все открытые подключения.
func (s *QdrantSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for alias, conn := range s.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = e.Wrap(alias, err)
		}
		delete(s.conns, alias)
	}

	return firstErr
}

// CheckCollection проверяет, что коллекция с подписями существует. Коллекцию не создаёт:
// её наполняет внешний процесс индексации.
func CheckCollection(ctx context.Context, session *QdrantSession, name string) error {
	const op = "clients.CheckCollection"

	points, err := session.Points(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	exists, err := points.CollectionExists(ctx, name)
	if err != nil {
		return e.Wrap(op, err)
	}

	if !exists {
		return e.Wrap(name, e.ErrCollectionNotExists)
	}

	return nil
}

package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/inventory_api/internal/db"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/models"
	"github.com/Skotchmaster/inventory_api/internal/util"
)

const DefaultMaxPageSize = 100

var (
	ErrInvalidQuery = errors.New("invalid query")
	// ErrStorage marks a failure to reach or read the snapshot, as opposed
	// to a query that simply matched nothing.
	ErrStorage = errors.New("inventory storage unavailable")
)

type Query struct {
	Page          int
	PageSize      int
	CharacterName string
	ItemName      string
	SortColumn    string
}

// Validate checks bounds and resolves SortColumn. It returns the column to
// order by, "" for storage order.
func (q Query) Validate(maxPageSize int) (string, error) {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	if q.Page < 1 {
		return "", fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}
	if q.PageSize < 1 || q.PageSize > maxPageSize {
		return "", fmt.Errorf("%w: page size must be between 1 and %d", ErrInvalidQuery, maxPageSize)
	}
	// (page-1)*size must fit in an int
	if q.Page-1 > math.MaxInt/q.PageSize {
		return "", fmt.Errorf("%w: page out of range", ErrInvalidQuery)
	}
	if q.SortColumn == "" {
		return "", nil
	}
	col, ok := NormalizeColumn(q.SortColumn)
	if !ok {
		return "", fmt.Errorf("%w: unknown sort column %q", ErrInvalidQuery, q.SortColumn)
	}
	return col, nil
}

func (q Query) Offset() int {
	return util.Offset(q.Page, q.PageSize)
}

func (q Query) filters(tx *gorm.DB) *gorm.DB {
	if q.CharacterName != "" {
		tx = tx.Where("char_name = ?", q.CharacterName)
	}
	if q.ItemName != "" {
		// instr is case-sensitive, unlike LIKE in sqlite
		tx = tx.Where("instr(item_name, ?) > 0", q.ItemName)
	}
	return tx
}

type Result struct {
	Items    []models.InventoryItem `json:"items"`
	Total    int64                  `json:"total"`
	Snapshot string                 `json:"snapshot"`
}

type Opener func(path string) (*gorm.DB, error)

// Searcher runs filtered, sorted, paginated reads against the current snapshot.
type Searcher struct {
	Source      Resolver
	Open        Opener
	Cache       Cache
	CacheTTL    time.Duration
	MaxPageSize int
}

func NewSearcher(src Resolver) *Searcher {
	return &Searcher{
		Source:      src,
		Open:        db.OpenSnapshot,
		MaxPageSize: DefaultMaxPageSize,
	}
}

// Search resolves the snapshot once and issues the count and page reads
// against that same file.
func (s *Searcher) Search(ctx context.Context, q Query) (Result, error) {
	col, err := q.Validate(s.MaxPageSize)
	if err != nil {
		return Result{}, err
	}

	path, info, err := s.snapshot()
	if err != nil {
		return Result{}, err
	}

	key := s.cacheKey(path, info, q, col)
	if s.Cache != nil {
		var cached Result
		hit, err := s.Cache.Get(ctx, key, &cached)
		if err != nil {
			logging.FromContext(ctx).Warn("inventory cache get failed", "error", err)
		}
		if hit {
			return cached, nil
		}
	}

	gdb, err := s.open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer db.Close(gdb)

	res := Result{Items: make([]models.InventoryItem, 0), Snapshot: path}

	if err := gdb.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Scopes(q.filters).
		Count(&res.Total).Error; err != nil {
		return Result{}, fmt.Errorf("%w: count: %w", ErrStorage, err)
	}

	if res.Total > 0 && int64(q.Offset()) < res.Total {
		tx := gdb.WithContext(ctx).Scopes(q.filters)
		if col != "" {
			tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col}})
		}
		if err := tx.Offset(q.Offset()).Limit(q.PageSize).Find(&res.Items).Error; err != nil {
			return Result{}, fmt.Errorf("%w: find: %w", ErrStorage, err)
		}
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, res, s.CacheTTL); err != nil {
			logging.FromContext(ctx).Warn("inventory cache set failed", "error", err)
		}
	}
	return res, nil
}

// CharacterNames lists the distinct character names of the current snapshot.
func (s *Searcher) CharacterNames(ctx context.Context) ([]string, error) {
	path, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	gdb, err := s.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer db.Close(gdb)

	names := make([]string, 0)
	if err := gdb.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Distinct().
		Order("char_name").
		Pluck("char_name", &names).Error; err != nil {
		return nil, fmt.Errorf("%w: names: %w", ErrStorage, err)
	}
	return names, nil
}

// Ping resolves the current snapshot and checks it can be opened.
func (s *Searcher) Ping(ctx context.Context) error {
	path, _, err := s.snapshot()
	if err != nil {
		return err
	}
	gdb, err := s.open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer db.Close(gdb)

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (s *Searcher) snapshot() (string, os.FileInfo, error) {
	path, err := s.Source.Resolve()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	// opening a missing file would create an empty database
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return path, info, nil
}

func (s *Searcher) open(path string) (*gorm.DB, error) {
	if s.Open == nil {
		return db.OpenSnapshot(path)
	}
	return s.Open(path)
}

func (s *Searcher) cacheKey(path string, info os.FileInfo, q Query, col string) string {
	return strings.Join([]string{
		"inventory",
		path,
		strconv.FormatInt(info.Size(), 10),
		strconv.FormatInt(creationTime(info).UnixNano(), 10),
		strconv.Itoa(q.Page),
		strconv.Itoa(q.PageSize),
		q.CharacterName,
		q.ItemName,
		col,
	}, "|")
}

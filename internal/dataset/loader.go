package dataset

import (
	"context"
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

const (
	batchSize    = 10000
	maxWorkers   = 8
	cacheVersion = "v1"
)

// Dataset is the immutable result of one CSV load. It is safe to share
// across requests for the lifetime of the process.
type Dataset struct {
	Orders   []models.Order
	LoadedAt time.Time
}

// RuleSet holds pre-mined association rules loaded from the rules export.
type RuleSet struct {
	Rules    []models.Rule
	LoadedAt time.Time
}

type Loader struct {
	logger   *slog.Logger
	cacheDir string
}

func NewLoader(logger *slog.Logger, cacheDir string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, cacheDir: cacheDir}
}

// LoadOrders reads the delivered-orders export, derives the computed
// columns and returns the rows in file order. The header decides the
// column layout: the file carries either year/month columns or an
// order_purchase_timestamp, depending on which upstream script wrote it.
func (l *Loader) LoadOrders(ctx context.Context, path string) (*Dataset, error) {
	if cached, err := l.loadSnapshot(path); err == nil {
		l.logger.Info("orders loaded from snapshot", "path", path, "rows", len(cached.Orders))
		return cached, nil
	}

	start := time.Now()

	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.DataUnavailableWrap(err, "orders file not found, run the upstream analysis first")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.DataUnavailableWrap(err, "orders file is empty or unreadable")
	}

	cols, err := mapOrderColumns(header)
	if err != nil {
		return nil, apperrors.DataUnavailableWrap(err, "orders file has an unexpected schema")
	}

	var (
		orders  []models.Order
		skipped int
		batch   = make([][]string, 0, batchSize)
	)

	flush := func() error {
		parsed, bad, err := parseOrderBatch(ctx, batch, cols)
		if err != nil {
			return err
		}
		orders = append(orders, parsed...)
		skipped += bad
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.DataUnavailableWrap(err, "orders file is unparsable")
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	if len(orders) == 0 {
		return nil, apperrors.DataUnavailable("orders file contains no valid rows")
	}

	ds := &Dataset{Orders: orders, LoadedAt: time.Now()}

	if err := l.saveSnapshot(path, ds); err != nil {
		l.logger.Warn("failed to save orders snapshot", "error", err)
	}

	l.logger.Info("orders loaded",
		"path", path,
		"rows", len(orders),
		"skipped", skipped,
		"duration", time.Since(start),
	)
	return ds, nil
}

// parseOrderBatch parses records in bounded-parallel fashion. Results are
// written by index so the output preserves file order, which later
// tie-breaking in the aggregations relies on.
func parseOrderBatch(ctx context.Context, batch [][]string, cols orderColumns) ([]models.Order, int, error) {
	out := make([]*models.Order, len(batch))

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for i, record := range batch {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			order, err := parseOrder(record, cols)
			if err != nil {
				return nil // skip malformed rows
			}
			out[i] = &order
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	orders := make([]models.Order, 0, len(batch))
	skipped := 0
	for _, o := range out {
		if o == nil {
			skipped++
			continue
		}
		orders = append(orders, *o)
	}
	return orders, skipped, nil
}

type orderColumns struct {
	orderID   int
	price     int
	freight   int
	review    int // -1 when absent
	state     int
	category  int
	year      int // -1 when absent
	month     int // -1 when absent
	timestamp int // -1 when absent
}

func mapOrderColumns(header []string) (orderColumns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	find := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	cols := orderColumns{
		orderID:   find("order_id"),
		price:     find("price"),
		freight:   find("freight_value"),
		review:    find("review_score"),
		state:     find("customer_state"),
		category:  find("product_category_name_english"),
		year:      find("year"),
		month:     find("month"),
		timestamp: find("order_purchase_timestamp"),
	}

	for _, required := range []struct {
		name string
		idx  int
	}{
		{"order_id", cols.orderID},
		{"price", cols.price},
		{"freight_value", cols.freight},
		{"customer_state", cols.state},
		{"product_category_name_english", cols.category},
	} {
		if required.idx < 0 {
			return cols, fmt.Errorf("missing column %q", required.name)
		}
	}

	if cols.timestamp < 0 && (cols.year < 0 || cols.month < 0) {
		return cols, fmt.Errorf("need either order_purchase_timestamp or year and month columns")
	}

	return cols, nil
}

func parseOrder(record []string, cols orderColumns) (models.Order, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	orderID := field(cols.orderID)
	if orderID == "" {
		return models.Order{}, fmt.Errorf("empty order_id")
	}

	price, err := strconv.ParseFloat(field(cols.price), 64)
	if err != nil || price < 0 {
		return models.Order{}, fmt.Errorf("bad price: %w", err)
	}

	freight, err := strconv.ParseFloat(field(cols.freight), 64)
	if err != nil || freight < 0 {
		return models.Order{}, fmt.Errorf("bad freight_value: %w", err)
	}

	order := models.Order{
		OrderID:      orderID,
		State:        field(cols.state),
		Category:     field(cols.category),
		Price:        price,
		FreightValue: freight,
	}

	// Review scores are allowed to be missing; everything else is not.
	if raw := field(cols.review); raw != "" {
		if score, err := parseLooseInt(raw); err == nil && score >= 1 && score <= 5 {
			order.ReviewScore = score
		}
	}

	if cols.timestamp >= 0 && field(cols.timestamp) != "" {
		ts, err := parseTimestamp(field(cols.timestamp))
		if err != nil {
			return models.Order{}, err
		}
		order.PurchaseDate = ts
		order.Year = ts.Year()
		order.Month = int(ts.Month())
	} else {
		// Year and month often round-trip through a float dtype upstream
		// and arrive as "2023.0".
		year, err := parseLooseInt(field(cols.year))
		if err != nil {
			return models.Order{}, fmt.Errorf("bad year: %w", err)
		}
		month, err := parseLooseInt(field(cols.month))
		if err != nil || month < 1 || month > 12 {
			return models.Order{}, fmt.Errorf("bad month: %w", err)
		}
		order.Year = year
		order.Month = month
		order.PurchaseDate = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	}

	order.Revenue = order.Price + order.FreightValue
	order.Period = fmt.Sprintf("%02d/%04d", order.Month, order.Year)
	if order.Price > 0 {
		order.FreightRatio = order.FreightValue / order.Price
		order.HasFreightRatio = true
	}

	return order, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func parseLooseInt(raw string) (int, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// LoadRules reads the pre-mined association rules export
// (antecedent,consequent,support,confidence,lift).
func (l *Loader) LoadRules(ctx context.Context, path string) (*RuleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.DataUnavailableWrap(err, "rules file not found, run the upstream analysis first")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.DataUnavailableWrap(err, "rules file is empty or unreadable")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"antecedent", "consequent", "support", "confidence", "lift"} {
		if _, ok := index[name]; !ok {
			return nil, apperrors.DataUnavailable(fmt.Sprintf("rules file is missing column %q", name))
		}
	}

	var rules []models.Rule
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.DataUnavailableWrap(err, "rules file is unparsable")
		}

		rule, err := parseRule(record, index)
		if err != nil {
			continue
		}
		rules = append(rules, rule)
	}

	if len(rules) == 0 {
		return nil, apperrors.DataUnavailable("rules file contains no valid rows")
	}

	l.logger.Info("rules loaded", "path", path, "rules", len(rules))
	return &RuleSet{Rules: rules, LoadedAt: time.Now()}, nil
}

func parseRule(record []string, index map[string]int) (models.Rule, error) {
	field := func(name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	support, err := strconv.ParseFloat(field("support"), 64)
	if err != nil {
		return models.Rule{}, err
	}
	confidence, err := strconv.ParseFloat(field("confidence"), 64)
	if err != nil {
		return models.Rule{}, err
	}
	lift, err := strconv.ParseFloat(field("lift"), 64)
	if err != nil {
		return models.Rule{}, err
	}

	return models.Rule{
		Antecedent: field("antecedent"),
		Consequent: field("consequent"),
		Support:    support,
		Confidence: confidence,
		Lift:       lift,
	}, nil
}

// Snapshot cache: a gob of the parsed dataset, valid while the source
// file is older than the snapshot. A stale source wins; there is no
// other invalidation.

func (l *Loader) snapshotPath(csvPath string) string {
	name := fmt.Sprintf("%s_%s.gob", strings.ReplaceAll(csvPath, string(os.PathSeparator), "_"), cacheVersion)
	return filepath.Join(l.cacheDir, name)
}

func (l *Loader) saveSnapshot(csvPath string, ds *Dataset) error {
	if l.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(l.snapshotPath(csvPath))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(ds)
}

func (l *Loader) loadSnapshot(csvPath string) (*Dataset, error) {
	if l.cacheDir == "" {
		return nil, fmt.Errorf("snapshot cache disabled")
	}

	file, err := os.Open(l.snapshotPath(csvPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var ds Dataset
	if err := gob.NewDecoder(file).Decode(&ds); err != nil {
		return nil, err
	}

	info, err := os.Stat(csvPath)
	if err != nil || info.ModTime().After(ds.LoadedAt) {
		return nil, fmt.Errorf("snapshot is stale")
	}
	return &ds, nil
}

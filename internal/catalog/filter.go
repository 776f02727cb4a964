package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

var localeRe = regexp.MustCompile(`^[a-z]{2,3}$`)

// FieldErrors maps a query or body field to what is wrong with it.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// ProductQuery is a parsed product listing request. Text dimensions hold
// comma separated terms that are ORed; distinct dimensions are ANDed.
type ProductQuery struct {
	Categories      []string
	SubCategories   []string
	IndexCategories []string
	Brands          []string
	Stocks          []string
	Titles          []string
	MinPrice        *int64
	MaxPrice        *int64
	HasSale         *bool
	Available       *bool
	IsNew           bool
	Gender          string
	OrderBy         string
	CategoryID      int64
	SubCategoryID   int64

	Locale   string
	Page     int
	PageSize int
}

// Offset of the first row of the requested page
func (q *ProductQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

func splitTerms(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var terms []string
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func parseBound(params url.Values, key string, errs FieldErrors) *int64 {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs[key] = "must be an integer"
		return nil
	}
	if v < 0 {
		errs[key] = "must be a non-negative value"
		return nil
	}
	return &v
}

func parseID(params url.Values, key string, errs FieldErrors) int64 {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		errs[key] = "must be a positive integer"
		return 0
	}
	return v
}

// ParseProductQuery reads listing parameters. It returns FieldErrors when a
// numeric or enumerated parameter is malformed.
func ParseProductQuery(params url.Values, locale string) (*ProductQuery, error) {
	errs := FieldErrors{}
	q := &ProductQuery{
		Categories:      splitTerms(params.Get("category")),
		SubCategories:   splitTerms(params.Get("sub_category")),
		IndexCategories: splitTerms(params.Get("index_category")),
		Brands:          splitTerms(params.Get("brand")),
		Stocks:          splitTerms(params.Get("stock")),
		Titles:          splitTerms(firstNonEmpty(params.Get("title"), params.Get("search"))),
		OrderBy:         strings.TrimSpace(params.Get("order_by")),
		Locale:          locale,
	}

	q.MinPrice = parseBound(params, "min_price", errs)
	q.MaxPrice = parseBound(params, "max_price", errs)
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		errs["min_price"] = "must not be greater than max_price"
	}
	q.CategoryID = parseID(params, "category_id", errs)
	q.SubCategoryID = parseID(params, "sub_category_id", errs)

	if v := strings.TrimSpace(params.Get("has_sale")); v != "" {
		sale := !strings.EqualFold(v, "false")
		q.HasSale = &sale
	}
	if v := strings.TrimSpace(params.Get("is_available")); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			errs["is_available"] = "must be a boolean"
		} else {
			q.Available = &b
		}
	}
	if v := strings.TrimSpace(params.Get("is_new")); v != "" {
		if strings.EqualFold(v, "new") {
			q.IsNew = true
		} else {
			q.IsNew = cast.ToBool(v)
		}
	}
	if v := strings.ToUpper(strings.TrimSpace(params.Get("gender"))); v != "" {
		if !domain.ValidGender(v) {
			errs["gender"] = "must be one of M, F, U"
		}
		q.Gender = v
	}

	q.Page = 1
	if v := strings.TrimSpace(params.Get("page")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			errs["page"] = "must be a positive integer"
		} else {
			q.Page = p
		}
	}
	q.PageSize = DefaultPageSize
	if v := firstNonEmpty(params.Get("perPage"), params.Get("page_size")); v != "" {
		ps, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || ps < 1 || ps > MaxPageSize {
			errs["perPage"] = fmt.Sprintf("must be between 1 and %d", MaxPageSize)
		} else {
			q.PageSize = ps
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return q, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// LocalizedExpr is the SQL expression reading one locale out of a Localized column.
func LocalizedExpr(db *gorm.DB, column, locale string) string {
	if strings.EqualFold(db.Dialector.Name(), "postgres") {
		return fmt.Sprintf("(%s ->> '%s')", column, locale)
	}
	return fmt.Sprintf("json_extract(%s, '$.%s')", column, locale)
}

// localizedLike builds "any term is contained in any locale" for column.
func localizedLike(db *gorm.DB, column string, locales, terms []string) (string, []interface{}) {
	postgres := strings.EqualFold(db.Dialector.Name(), "postgres")
	var conds []string
	var vars []interface{}
	for _, term := range terms {
		for _, locale := range locales {
			if !localeRe.MatchString(locale) {
				continue
			}
			expr := LocalizedExpr(db, column, locale)
			if postgres {
				conds = append(conds, expr+" ILIKE ?")
				vars = append(vars, "%"+term+"%")
			} else {
				conds = append(conds, "LOWER("+expr+") LIKE ?")
				vars = append(vars, "%"+strings.ToLower(term)+"%")
			}
		}
	}
	if len(conds) == 0 {
		return "1 = 0", nil
	}
	return "(" + strings.Join(conds, " OR ") + ")", vars
}

// titleSubquery selects ids of table rows whose localized title matches terms.
func titleSubquery(db *gorm.DB, table string, locales, terms []string) *gorm.DB {
	cond, vars := localizedLike(db, table+".title", locales, terms)
	return db.Session(&gorm.Session{NewDB: true}).Table(table).Select(table + ".id").Where(cond, vars...)
}

// Apply adds the WHERE clauses of q to a query over the product table.
func (q *ProductQuery) Apply(db *gorm.DB, locales []string) *gorm.DB {
	if len(q.Categories) > 0 {
		db = db.Where("product.category_id IN (?)", titleSubquery(db, "category", locales, q.Categories))
	}
	if len(q.SubCategories) > 0 {
		db = db.Where("product.sub_category_id IN (?)", titleSubquery(db, "sub_category", locales, q.SubCategories))
	}
	if len(q.IndexCategories) > 0 {
		db = db.Where("product.index_category_id IN (?)", titleSubquery(db, "index_category", locales, q.IndexCategories))
	}
	if len(q.Brands) > 0 {
		db = db.Where("product.brand_id IN (?)", titleSubquery(db, "brand", locales, q.Brands))
	}
	if len(q.Stocks) > 0 {
		db = db.Where("product.stock_id IN (?)", titleSubquery(db, "stock", locales, q.Stocks))
	}
	if len(q.Titles) > 0 {
		cond, vars := localizedLike(db, "product.title", locales, q.Titles)
		db = db.Where(cond, vars...)
	}
	if q.CategoryID > 0 {
		db = db.Where("product.category_id = ?", q.CategoryID)
	}
	if q.SubCategoryID > 0 {
		db = db.Where("product.sub_category_id = ?", q.SubCategoryID)
	}
	if q.MinPrice != nil {
		db = db.Where("product.price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("product.price <= ?", *q.MaxPrice)
	}
	if q.HasSale != nil {
		if *q.HasSale {
			db = db.Where("product.sales <> 0")
		} else {
			db = db.Where("product.sales = 0")
		}
	}
	if q.Available != nil {
		db = db.Where("product.is_available = ?", *q.Available)
	}
	if q.Gender != "" {
		db = db.Where("product.gender = ?", q.Gender)
	}
	return db
}

// OrderClause resolves order_by against the whitelist. An explicit valid
// order_by wins; is_new sorts newest first; an unknown order_by falls back to
// id descending; no ordering at all keeps id ascending.
func (q *ProductQuery) OrderClause(db *gorm.DB, locales []string) string {
	key := q.OrderBy
	if key == "" {
		if q.IsNew {
			return "product.id DESC"
		}
		return "product.id ASC"
	}
	dir := "ASC"
	if strings.HasPrefix(key, "-") {
		dir = "DESC"
		key = strings.TrimPrefix(key, "-")
	}
	if key == "price" {
		return "product.price " + dir + ", product.id " + dir
	}
	if key == "title" && localeRe.MatchString(q.Locale) {
		return LocalizedExpr(db, "product.title", q.Locale) + " " + dir
	}
	if locale, ok := strings.CutPrefix(key, "title_"); ok {
		for _, l := range locales {
			if l == locale && localeRe.MatchString(l) {
				return LocalizedExpr(db, "product.title", l) + " " + dir
			}
		}
	}
	return "product.id DESC"
}

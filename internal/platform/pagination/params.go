package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	domain "github.com/menuslot/api/internal/domain"
)

// Options control how Parse behaves for a given handler layer.
type Options struct {
	DefaultLimit      int
	MaxLimit          int
	AllowedSortFields []string
}

var (
	ErrInvalidPage  = errors.New("pagination: invalid page")
	ErrInvalidLimit = errors.New("pagination: invalid limit")
	ErrInvalidSort  = errors.New("pagination: invalid sort")
	ErrInvalidOrder = errors.New("pagination: invalid order")
)

// FromRequest parses page, limit, sort and order from the request query string.
func FromRequest(r *http.Request, opts Options) (domain.ListOptions, error) {
	if r == nil {
		return domain.ListOptions{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse consumes the provided query values and returns normalised list options.
// Limits above the maximum are clamped rather than rejected.
func Parse(values url.Values, opts Options) (domain.ListOptions, error) {
	if values == nil {
		values = url.Values{}
	}

	page, err := parsePage(values.Get("page"))
	if err != nil {
		return domain.ListOptions{}, err
	}
	limit, err := parseLimit(values.Get("limit"), opts)
	if err != nil {
		return domain.ListOptions{}, err
	}
	sort, err := parseSort(values.Get("sort"), opts.AllowedSortFields)
	if err != nil {
		return domain.ListOptions{}, err
	}
	order, err := parseOrder(values.Get("order"))
	if err != nil {
		return domain.ListOptions{}, err
	}

	return domain.ListOptions{Page: page, Limit: limit, Sort: sort, Order: order}, nil
}

func parsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPage)
	}
	if value < 1 {
		return 0, fmt.Errorf("%w: must be at least 1", ErrInvalidPage)
	}
	return value, nil
}

func parseLimit(raw string, opts Options) (int, error) {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = domain.MaxPageLimit
	}
	defaultLimit := opts.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = domain.DefaultPageLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultLimit, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidLimit)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidLimit)
	}
	if value > maxLimit {
		value = maxLimit
	}
	return value, nil
}

func parseSort(raw string, allowed []string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.DefaultSortField, nil
	}
	if len(allowed) == 0 {
		allowed = domain.SortFields
	}
	for _, field := range allowed {
		if field == raw {
			return raw, nil
		}
	}
	return "", fmt.Errorf("%w: field %q is not allowed", ErrInvalidSort, raw)
}

func parseOrder(raw string) (domain.SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(domain.SortDesc):
		return domain.SortDesc, nil
	case string(domain.SortAsc):
		return domain.SortAsc, nil
	default:
		return "", fmt.Errorf("%w: %q must be asc or desc", ErrInvalidOrder, raw)
	}
}

// IsInvalid reports whether err came from parsing list parameters.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidPage) ||
		errors.Is(err, ErrInvalidLimit) ||
		errors.Is(err, ErrInvalidSort) ||
		errors.Is(err, ErrInvalidOrder)
}

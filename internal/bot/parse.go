package bot

import (
	"fmt"
	"strconv"
	"strings"

	"movie_bot/internal/model"
	"movie_bot/internal/tmdb"
)

// ParseIDArg extracts a numeric item ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("item ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item ID %q", s)
	}
	return id, nil
}

// ParseWindowArg extracts a trending time window from command arguments,
// defaulting to "week" when absent or unrecognized.
func ParseWindowArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) > 0 && (fields[0] == tmdb.WindowDay || fields[0] == tmdb.WindowWeek) {
		return fields[0]
	}
	return tmdb.WindowWeek
}

// ParseItemToken parses a "movie_<id>" or "tv_<id>" callback token.
func ParseItemToken(data string) (model.MediaKind, int64, bool) {
	parts := strings.SplitN(data, "_", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	kind := model.MediaKind(parts[0])
	if kind != model.KindMovie && kind != model.KindTV {
		return "", 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return kind, id, true
}

// ParseAddToken parses an "add_<kind>_<id>" callback token.
func ParseAddToken(data string) (model.MediaKind, int64, bool) {
	rest, ok := strings.CutPrefix(data, "add_")
	if !ok {
		return "", 0, false
	}
	return ParseItemToken(rest)
}

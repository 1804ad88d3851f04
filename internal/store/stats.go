package store

import (
	"context"
	"os"
	"sort"
)

// Stats holds database statistics.
type Stats struct {
	Backend          string       `json:"backend"`
	DBPath           string       `json:"db_path,omitempty"` // database file, or documents directory
	DBSizeBytes      int64        `json:"db_size_bytes,omitempty"`
	Serials          int          `json:"serials"`
	OverrideVersions int          `json:"override_versions"`
	Chats            int          `json:"chats"`
	ColorCounts      []ColorCount `json:"colors"`
}

// ColorCount is the number of current overrides with one color.
type ColorCount struct {
	Color string `json:"color"`
	Count int    `json:"count"`
}

// Stats returns database statistics.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: s.driver, DBPath: s.path}

	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM overrides`).Scan(&st.OverrideVersions); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT serial) FROM overrides`).Scan(&st.Serials); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_history`).Scan(&st.Chats); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.color, COUNT(*) AS cnt
		FROM overrides o
		INNER JOIN (
			SELECT serial, MAX(version) AS max_ver
			FROM overrides GROUP BY serial
		) latest ON o.serial = latest.serial AND o.version = latest.max_ver
		GROUP BY o.color ORDER BY cnt DESC, o.color`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var c ColorCount
		if err := rows.Scan(&c.Color, &c.Count); err != nil {
			return st, err
		}
		st.ColorCounts = append(st.ColorCounts, c)
	}
	return st, rows.Err()
}

// Stats counts the documents' entries. The file backend keeps only the
// current outcome per serial, so OverrideVersions equals Serials.
func (s *FileStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{
		Backend:          BackendFile,
		DBPath:           s.dir,
		Serials:          len(s.overrides),
		OverrideVersions: len(s.overrides),
		Chats:            len(s.chats),
	}
	for _, p := range []string{s.memoryPath(), s.historyPath()} {
		if info, err := os.Stat(p); err == nil {
			st.DBSizeBytes += info.Size()
		}
	}

	counts := map[string]int{}
	for _, o := range s.overrides {
		counts[string(o.Color)]++
	}
	for c, n := range counts {
		st.ColorCounts = append(st.ColorCounts, ColorCount{Color: c, Count: n})
	}
	sort.Slice(st.ColorCounts, func(i, j int) bool {
		a, b := st.ColorCounts[i], st.ColorCounts[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Color < b.Color
	})
	return st, nil
}

package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// QueryOpts holds filters for ledger queries, shared by the shard scanner
// and the query index.
type QueryOpts struct {
	Subject string
	Verdict Verdict
	Since   string // RFC-3339 lower bound on timestamp, inclusive
	Limit   int    // 0 means the default of 50
}

const defaultQueryLimit = 50

func (o QueryOpts) matches(r Record) bool {
	if o.Subject != "" && r.Subject != o.Subject {
		return false
	}
	if o.Verdict != "" && r.Verdict != o.Verdict {
		return false
	}
	if o.Since != "" && r.Timestamp < o.Since {
		return false
	}
	return true
}

// ReadShardFile decodes the NDJSON records in one dossier file. A torn
// trailing line (crash mid-write) is skipped silently; an unparsable line
// anywhere else is an error, since the ledger never rewrites lines.
func ReadShardFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	var records []Record
	var pendingErr error

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if pendingErr != nil {
			// The bad line was not the trailing one.
			return nil, pendingErr
		}
		var r Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			pendingErr = fmt.Errorf("%s: malformed ledger line: %w", path, err)
			continue
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Scan walks the dossier shards under the canon root, newest shard first,
// and returns records matching opts, newest first, up to the limit. It is
// the fallback reader when no query index is configured.
func Scan(canonRoot string, opts QueryOpts) ([]Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	dossiers := filepath.Join(canonRoot, "dossiers")
	shards, err := os.ReadDir(dossiers)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	// Shard names are YYYY-MM, so lexical order is chronological.
	names := make([]string, 0, len(shards))
	for _, s := range shards {
		if s.IsDir() {
			names = append(names, s.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var out []Record
	for _, shard := range names {
		files, err := os.ReadDir(filepath.Join(dossiers, shard))
		if err != nil {
			return nil, err
		}
		fileNames := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() && strings.HasPrefix(f.Name(), "audit-") {
				fileNames = append(fileNames, f.Name())
			}
		}
		sort.Sort(sort.Reverse(sort.StringSlice(fileNames)))

		for _, name := range fileNames {
			records, err := ReadShardFile(filepath.Join(dossiers, shard, name))
			if err != nil {
				return nil, err
			}
			for i := len(records) - 1; i >= 0; i-- {
				if opts.matches(records[i]) {
					out = append(out, records[i])
					if len(out) >= limit {
						return out, nil
					}
				}
			}
		}
	}
	return out, nil
}

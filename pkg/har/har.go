// Package har parses HAR 1.2 (HTTP Archive) captures into traffic exchanges
// and reconstructs session flows from them. It is the default
// flow-reconstruction collaborator consumed by the pipeline's load operation.
package har

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/csrfshield/csrfshield/pkg/defaults"
	"github.com/csrfshield/csrfshield/pkg/jsonutil"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

// Sentinel errors for capture loading. Callers should use errors.Is().
var (
	// ErrNotFound indicates the capture file does not exist or is unreadable.
	ErrNotFound = errors.New("har: capture file not found")

	// ErrParse indicates the file is not a valid HAR 1.2 document.
	ErrParse = errors.New("har: invalid capture")
)

// harDocument is the root HAR 1.2 structure. Only the fields the analysis
// needs are decoded; everything else in the archive is ignored.
type harDocument struct {
	Log harLog `json:"log"`
}

type harLog struct {
	Version string     `json:"version"`
	Entries []harEntry `json:"entries"`
}

type harEntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Request         harRequest  `json:"request"`
	Response        harResponse `json:"response"`
}

type harRequest struct {
	Method   string         `json:"method"`
	URL      string         `json:"url"`
	Headers  []harNameValue `json:"headers"`
	Cookies  []harNameValue `json:"cookies"`
	PostData *harPostData   `json:"postData,omitempty"`
}

type harResponse struct {
	Status  int            `json:"status"`
	Headers []harNameValue `json:"headers"`
	Content harContent     `json:"content"`
}

type harNameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type harPostData struct {
	MimeType string         `json:"mimeType"`
	Text     string         `json:"text"`
	Params   []harNameValue `json:"params"`
}

type harContent struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// ParseFile reads a HAR 1.2 file and returns one Exchange per well-formed
// entry. Malformed entries are skipped with a warning rather than failing
// the whole capture.
func ParseFile(path string) ([]traffic.Exchange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	return Parse(data)
}

// Parse decodes HAR 1.2 bytes into exchanges.
func Parse(data []byte) ([]traffic.Exchange, error) {
	var doc harDocument
	if err := jsonutil.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if doc.Log.Entries == nil {
		return nil, fmt.Errorf("%w: missing log.entries", ErrParse)
	}
	if doc.Log.Version != "" && !strings.HasPrefix(doc.Log.Version, "1.") {
		log.Printf("[har] version %s may not be fully supported (expected 1.x)", doc.Log.Version)
	}

	exchanges := make([]traffic.Exchange, 0, len(doc.Log.Entries))
	for i, entry := range doc.Log.Entries {
		ex, err := parseEntry(entry)
		if err != nil {
			log.Printf("[har] skipping entry %d: %v", i, err)
			continue
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}

func parseEntry(entry harEntry) (traffic.Exchange, error) {
	if entry.Request.Method == "" || entry.Request.URL == "" {
		return traffic.Exchange{}, errors.New("entry missing request method or url")
	}

	headers := flattenHeaders(entry.Request.Headers)
	body, contentType := parseBody(entry.Request.PostData)
	if contentType == "" {
		contentType = headers["Content-Type"]
	}

	return traffic.Exchange{
		Method:          strings.ToUpper(entry.Request.Method),
		URL:             entry.Request.URL,
		Headers:         headers,
		Cookies:         flattenCookies(entry.Request.Cookies),
		Body:            body,
		ContentType:     contentType,
		ResponseStatus:  entry.Response.Status,
		ResponseHeaders: flattenHeaders(entry.Response.Headers),
		ResponseBody:    entry.Response.Content.Text,
		Timestamp:       parseTimestamp(entry.StartedDateTime),
	}, nil
}

// flattenHeaders converts the HAR name/value array into a map. Duplicate
// header names are joined with ", " per RFC 7230 §3.2.2.
func flattenHeaders(list []harNameValue) map[string]string {
	out := make(map[string]string, len(list))
	for _, item := range list {
		if item.Name == "" {
			continue
		}
		if prev, ok := out[item.Name]; ok {
			out[item.Name] = prev + ", " + item.Value
		} else {
			out[item.Name] = item.Value
		}
	}
	return out
}

func flattenCookies(list []harNameValue) map[string]string {
	out := make(map[string]string, len(list))
	for _, item := range list {
		if item.Name != "" {
			out[item.Name] = item.Value
		}
	}
	return out
}

// parseBody extracts the request body from postData. When the capture
// truncated the raw text but kept the parsed parameter list, the body is
// reconstructed as application/x-www-form-urlencoded.
func parseBody(pd *harPostData) (body, mimeType string) {
	if pd == nil {
		return "", ""
	}
	if pd.Text != "" {
		return pd.Text, pd.MimeType
	}
	if len(pd.Params) > 0 {
		values := url.Values{}
		for _, p := range pd.Params {
			values.Add(p.Name, p.Value)
		}
		return values.Encode(), pd.MimeType
	}
	return "", pd.MimeType
}

func parseTimestamp(iso string) time.Time {
	if iso == "" {
		return time.Now()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, iso); err == nil {
			return ts
		}
	}
	log.Printf("[har] could not parse timestamp %q, using now()", iso)
	return time.Now()
}

// ReconstructFlows groups exchanges into session flows keyed by the value of
// the first session-indicating cookie, and orders everything
// chronologically. Exchanges without a session cookie each get a generated
// "no-session-" flow of their own. The returned flows carry AuthUnknown; the
// classifier sets the real mechanism later.
func ReconstructFlows(exchanges []traffic.Exchange, cookiePatterns []string) []traffic.SessionFlow {
	if len(exchanges) == 0 {
		return nil
	}
	if len(cookiePatterns) == 0 {
		cookiePatterns = defaults.SessionCookiePatterns()
	}

	groups := make(map[string][]traffic.Exchange)
	var order []string
	for _, ex := range exchanges {
		id := sessionID(ex, cookiePatterns)
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], ex)
	}

	flows := make([]traffic.SessionFlow, 0, len(groups))
	for _, id := range order {
		group := groups[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
		flows = append(flows, traffic.SessionFlow{ID: id, Exchanges: group, Auth: traffic.AuthUnknown})
	}

	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Exchanges[0].Timestamp.Before(flows[j].Exchanges[0].Timestamp)
	})

	log.Printf("[har] reconstructed %d session flow(s) from %d exchange(s)", len(flows), len(exchanges))
	return flows
}

func sessionID(ex traffic.Exchange, patterns []string) string {
	// Cookie names are visited in sorted order so grouping is deterministic
	// even when several cookies match a session pattern.
	names := make([]string, 0, len(ex.Cookies))
	for name := range ex.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		lower := strings.ToLower(name)
		for _, p := range patterns {
			if strings.Contains(lower, strings.ToLower(p)) && ex.Cookies[name] != "" {
				return ex.Cookies[name]
			}
		}
	}
	return "no-session-" + uuid.NewString()[:8]
}

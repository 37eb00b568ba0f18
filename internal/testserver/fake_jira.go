package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ganot/oncall-mcp/internal/adf"
	"github.com/ganot/oncall-mcp/internal/jira"
	"github.com/go-chi/chi/v5"
)

const (
	FakeEmail = "bot@example.com"
	FakeToken = "test-token"
)

var (
	textClause = regexp.MustCompile(`text ~ "([^"]*)"`)
	keyClause  = regexp.MustCompile(`key != ([A-Z][A-Z0-9_]+-\d+)`)
)

// FakeJira is an in-memory ticketing backend speaking the REST paths the
// client uses.
type FakeJira struct {
	Server *httptest.Server

	mu          sync.Mutex
	issues      map[string]jira.Issue
	searches    []jira.SearchRequest
	transitions []jira.Transition
	failStatus  int
	failMessage string
	searchFail  int
	searchMsg   string
	nextID      int
}

// NewFakeJira starts a fake backend closed at test cleanup.
func NewFakeJira(t *testing.T) *FakeJira {
	t.Helper()
	f := &FakeJira{
		issues: map[string]jira.Issue{},
		nextID: 10000,
	}
	f.transitions = []jira.Transition{
		{ID: "21", Name: "Start Progress", To: &jira.Named{Name: "In Progress"}},
		{ID: "31", Name: "Resolve", To: &jira.Named{Name: "Done"}},
	}

	r := chi.NewRouter()
	r.Use(f.authenticate, f.failures)
	r.Route("/rest/api/3", func(r chi.Router) {
		r.Post("/search/jql", f.handleSearch)
		r.Post("/issue", f.handleCreate)
		r.Get("/issue/{key}", f.handleGet)
		r.Put("/issue/{key}", f.handleUpdate)
		r.Delete("/issue/{key}", f.handleDelete)
		r.Post("/issue/{key}/comment", f.handleComment)
		r.Get("/issue/{key}/transitions", f.handleListTransitions)
		r.Post("/issue/{key}/transitions", f.handleTransition)
		r.Get("/issue/{key}/editmeta", f.handleEditMeta)
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL of the fake site.
func (f *FakeJira) URL() string {
	return f.Server.URL
}

// AddIssue stores or replaces an issue.
func (f *FakeJira) AddIssue(issue jira.Issue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if issue.ID == "" {
		f.nextID++
		issue.ID = fmt.Sprint(f.nextID)
	}
	f.issues[issue.Key] = issue
}

// Issue returns a stored issue.
func (f *FakeJira) Issue(key string) (jira.Issue, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[key]
	return issue, ok
}

// Searches returns the search requests received so far.
func (f *FakeJira) Searches() []jira.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]jira.SearchRequest(nil), f.searches...)
}

// Fail makes every following request answer with status until reset with 0.
func (f *FakeJira) Fail(status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus, f.failMessage = status, message
}

// FailSearches makes only searches fail with status until reset with 0.
func (f *FakeJira) FailSearches(status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchFail, f.searchMsg = status, message
}

// TextIssue builds an issue whose description is a plain-text ADF document.
func TextIssue(key, summary, description, priority string, created time.Time) jira.Issue {
	project, _, _ := strings.Cut(key, "-")
	desc, _ := json.Marshal(adf.Document(description))
	return jira.Issue{
		Key: key,
		Fields: jira.IssueFields{
			Summary:     summary,
			Description: desc,
			Status:      &jira.Named{Name: "Open"},
			Priority:    &jira.Named{Name: priority},
			IssueType:   &jira.Named{Name: "Bug"},
			Project:     &jira.Project{Key: project},
			Reporter:    &jira.User{DisplayName: "Reporter"},
			Created:     jira.Time{Time: created},
			Updated:     jira.Time{Time: created},
			Comment:     &jira.CommentPage{},
		},
		Changelog: &jira.Changelog{},
	}
}

func (f *FakeJira) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, token, ok := r.BasicAuth()
		if !ok || email != FakeEmail || token != FakeToken {
			writeBackendError(w, http.StatusUnauthorized, "Client must be authenticated to access this resource.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeJira) failures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status, message := f.failStatus, f.failMessage
		f.mu.Unlock()
		if status != 0 {
			writeBackendError(w, status, message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeJira) handleGet(w http.ResponseWriter, r *http.Request) {
	issue, ok := f.Issue(chi.URLParam(r, "key"))
	if !ok {
		writeBackendError(w, http.StatusNotFound, "Issue does not exist or you do not have permission to see it.")
		return
	}
	writeBackendJSON(w, http.StatusOK, issue)
}

func (f *FakeJira) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req jira.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JQL == "" {
		writeBackendError(w, http.StatusBadRequest, "The JQL query is invalid.")
		return
	}

	f.mu.Lock()
	f.searches = append(f.searches, req)
	if f.searchFail != 0 {
		status, message := f.searchFail, f.searchMsg
		f.mu.Unlock()
		writeBackendError(w, status, message)
		return
	}
	var keywords []string
	if m := textClause.FindStringSubmatch(req.JQL); m != nil {
		keywords = strings.Fields(strings.ToLower(m[1]))
	}
	excluded := ""
	if m := keyClause.FindStringSubmatch(req.JQL); m != nil {
		excluded = m[1]
	}
	var matched []jira.Issue
	for key, issue := range f.issues {
		if key == excluded {
			continue
		}
		if len(keywords) > 0 && !containsAny(strings.ToLower(issue.Fields.Summary), keywords) {
			continue
		}
		issue.Changelog = nil
		matched = append(matched, issue)
	}
	f.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Fields.Updated.After(matched[j].Fields.Updated.Time)
	})
	if req.MaxResults > 0 && len(matched) > req.MaxResults {
		matched = matched[:req.MaxResults]
	}
	writeBackendJSON(w, http.StatusOK, jira.SearchResult{Issues: matched})
}

func (f *FakeJira) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields struct {
			Project     jira.Project    `json:"project"`
			Summary     string          `json:"summary"`
			Description json.RawMessage `json:"description"`
			IssueType   jira.Named      `json:"issuetype"`
		} `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBackendError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Fields.Summary == "" {
		writeBackendJSON(w, http.StatusBadRequest, map[string]any{
			"errorMessages": []string{},
			"errors":        map[string]string{"summary": "You must specify a summary of the issue."},
		})
		return
	}

	f.mu.Lock()
	f.nextID++
	id := fmt.Sprint(f.nextID)
	key := fmt.Sprintf("%s-%d", req.Fields.Project.Key, f.nextID)
	now := time.Now().UTC()
	f.issues[key] = jira.Issue{
		ID:  id,
		Key: key,
		Fields: jira.IssueFields{
			Summary:     req.Fields.Summary,
			Description: req.Fields.Description,
			Status:      &jira.Named{Name: "Open"},
			IssueType:   &req.Fields.IssueType,
			Project:     &req.Fields.Project,
			Created:     jira.Time{Time: now},
			Updated:     jira.Time{Time: now},
			Comment:     &jira.CommentPage{},
		},
		Changelog: &jira.Changelog{},
	}
	f.mu.Unlock()

	writeBackendJSON(w, http.StatusCreated, jira.CreatedIssue{ID: id, Key: key, Self: f.Server.URL + "/rest/api/3/issue/" + id})
}

func (f *FakeJira) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBackendError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := chi.URLParam(r, "key")
	issue, ok := f.issues[key]
	if !ok {
		writeBackendError(w, http.StatusNotFound, "Issue does not exist or you do not have permission to see it.")
		return
	}
	for field, raw := range req.Fields {
		switch field {
		case "labels":
			_ = json.Unmarshal(raw, &issue.Fields.Labels)
		case "priority":
			var p jira.Named
			_ = json.Unmarshal(raw, &p)
			issue.Fields.Priority = &p
		case "summary":
			_ = json.Unmarshal(raw, &issue.Fields.Summary)
		default:
			writeBackendJSON(w, http.StatusBadRequest, map[string]any{
				"errorMessages": []string{},
				"errors":        map[string]string{field: "Field '" + field + "' cannot be set. It is not on the appropriate screen, or unknown."},
			})
			return
		}
	}
	f.issues[key] = issue
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeJira) handleDelete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := chi.URLParam(r, "key")
	if _, ok := f.issues[key]; !ok {
		writeBackendError(w, http.StatusNotFound, "Issue does not exist or you do not have permission to see it.")
		return
	}
	delete(f.issues, key)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeJira) handleComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body json.RawMessage `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBackendError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := chi.URLParam(r, "key")
	issue, ok := f.issues[key]
	if !ok {
		writeBackendError(w, http.StatusNotFound, "Issue does not exist or you do not have permission to see it.")
		return
	}
	f.nextID++
	comment := jira.Comment{
		ID:      fmt.Sprint(f.nextID),
		Author:  &jira.User{DisplayName: "Bot"},
		Body:    req.Body,
		Created: jira.Time{Time: time.Now().UTC()},
	}
	if issue.Fields.Comment == nil {
		issue.Fields.Comment = &jira.CommentPage{}
	}
	issue.Fields.Comment.Comments = append(issue.Fields.Comment.Comments, comment)
	issue.Fields.Comment.Total = len(issue.Fields.Comment.Comments)
	f.issues[key] = issue
	writeBackendJSON(w, http.StatusCreated, jira.CreatedComment{ID: comment.ID, Created: comment.Created})
}

func (f *FakeJira) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.Issue(chi.URLParam(r, "key")); !ok {
		writeBackendError(w, http.StatusNotFound, "Issue does not exist or you do not have permission to see it.")
		return
	}
	f.mu.Lock()
	transitions := append([]jira.Transition(nil), f.transitions...)
	f.mu.Unlock()
	writeBackendJSON(w, http.StatusOK, map[string]any{"transitions": transitions})
}

func (f *FakeJira) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transition struct {
			ID string `json:"id"`
		} `json:"transition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBackendError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := chi.URLParam(r, "key")
	issue, ok := f.issues[key]
	if !ok {
		writeBackendError(w, http.StatusNotFound, "Issue does not exist or you do not have permission to see it.")
		return
	}
	for _, tr := range f.transitions {
		if tr.ID == req.Transition.ID {
			issue.Fields.Status = &jira.Named{Name: tr.To.Name}
			f.issues[key] = issue
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeBackendError(w, http.StatusBadRequest, "Transition id '"+req.Transition.ID+"' is not valid for this issue.")
}

func (f *FakeJira) handleEditMeta(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.Issue(chi.URLParam(r, "key")); !ok {
		writeBackendError(w, http.StatusNotFound, "Issue does not exist or you do not have permission to see it.")
		return
	}
	writeBackendJSON(w, http.StatusOK, map[string]any{
		"fields": map[string]any{
			"priority": map[string]any{
				"name": "Priority",
				"allowedValues": []jira.FieldOption{
					{ID: "1", Name: "Highest"}, {ID: "2", Name: "High"}, {ID: "3", Name: "Medium"},
					{ID: "4", Name: "Low"}, {ID: "5", Name: "Lowest"},
				},
			},
			"labels": map[string]any{"name": "Labels"},
		},
	})
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func writeBackendError(w http.ResponseWriter, status int, message string) {
	writeBackendJSON(w, status, map[string]any{
		"errorMessages": []string{message},
		"errors":        map[string]string{},
	})
}

func writeBackendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

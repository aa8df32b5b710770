// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apitest provides an in-process fake of the scholar service for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/scholar-tui/internal/api"
)

// Frame is one SSE event written by a scripted stream. An empty Event
// writes a default message event. Block holds the connection open until
// the client goes away.
type Frame struct {
	Event string
	Data  string
	Block bool
}

// Token returns a message frame carrying an assistant chunk.
func Token(text string) Frame {
	return Frame{Data: mustJSON(map[string]any{"type": api.PayloadToken, "content": text})}
}

// Tool returns a message frame carrying a tool notice.
func Tool(content string) Frame {
	return Frame{Data: mustJSON(map[string]any{"type": api.PayloadTool, "content": content})}
}

// Interrupt returns a message frame carrying an interrupt value.
func Interrupt(value any) Frame {
	return Frame{Data: mustJSON(map[string]any{
		"type":       api.PayloadInterrupt,
		"interrupts": []any{map[string]any{"value": value}},
	})}
}

// End returns the terminal end frame.
func End() Frame { return Frame{Event: api.EventEnd, Data: "{}"} }

// Fail returns a terminal error frame.
func Fail(msg string) Frame {
	return Frame{Event: api.EventError, Data: mustJSON(map[string]string{"message": msg})}
}

// Block returns a frame that holds the stream open.
func Block() Frame { return Frame{Block: true} }

// Prompt is a recorded POST chat/{id}.
type Prompt struct {
	ChatID  string
	Request api.PromptRequest
}

// Resume is a recorded POST chat/{id}/resume.
type Resume struct {
	ChatID  string
	Payload json.RawMessage
}

// Upload is a recorded multipart upload.
type Upload struct {
	FileName string
	Content  string
	Fields   map[string]string
}

// Server is a scripted fake of the scholar service.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	categories  []api.Category
	searchPaths []api.SearchPath
	documents   []map[string]string
	content     map[string][]api.ContentChunk
	files       map[string][]byte
	history     map[string][]api.Turn
	current     map[string]*api.Turn
	interrupts  map[string]any
	streams     map[string][][]Frame
	failures    map[string]failure
	nextChatID  int

	prompts     []Prompt
	resumes     []Resume
	streamOpens map[string]int
	uploads     []Upload
	queries     []api.DocumentQuery
	deletedDocs []string
	deletedChat []string
}

type failure struct {
	status int
	body   string
}

// NewServer starts a fake service. Close it when done.
func NewServer() *Server {
	s := &Server{
		content:     make(map[string][]api.ContentChunk),
		files:       make(map[string][]byte),
		history:     make(map[string][]api.Turn),
		current:     make(map[string]*api.Turn),
		interrupts:  make(map[string]any),
		streams:     make(map[string][][]Frame),
		failures:    make(map[string]failure),
		streamOpens: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(s.failMiddleware)

		r.Get("/meta_data/categories", s.handleCategories)
		r.Get("/meta_data/search_paths", s.handleSearchPaths)

		r.Post("/document_manager", s.handleListDocuments)
		r.Post("/document_manager/upload", s.handleUpload)
		r.Get("/document_manager/get_content/{id}", s.handleContent)
		r.Get("/document_manager/download/{id}", s.handleDownload)
		r.Delete("/document_manager/{id}", s.handleDeleteDocument)

		r.Get("/chat/get_new_chat_id", s.handleNewChat)
		r.Get("/chat/{id}", s.handleHistory)
		r.Post("/chat/{id}", s.handlePrompt)
		r.Delete("/chat/{id}", s.handleDeleteChat)
		r.Get("/chat/{id}/stream", s.handleStream)
		r.Get("/chat/{id}/current_state", s.handleCurrentState)
		r.Get("/chat/{id}/interrupt_status", s.handleInterruptStatus)
		r.Post("/chat/{id}/resume", s.handleResume)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL returns the API root of the fake.
func (s *Server) BaseURL() string {
	return s.URL + "/api/"
}

// =============================================================================
// SETUP
// =============================================================================

// SetMetadata sets the categories and search paths served.
func (s *Server) SetMetadata(cats []api.Category, paths []api.SearchPath) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = cats
	s.searchPaths = paths
}

// AddDocument adds a row. Extra keys become category columns.
func (s *Server) AddDocument(row map[string]string, content []string, file []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, row)
	id := row["id"]
	for _, c := range content {
		s.content[id] = append(s.content[id], api.ContentChunk{PageContent: c})
	}
	if file != nil {
		s.files[id] = file
	}
}

// SetHistory sets the turns of a chat, newest first.
func (s *Server) SetHistory(chatID string, turns []api.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[chatID] = turns
}

// SetCurrentState sets the snapshot returned by current_state.
func (s *Server) SetCurrentState(chatID string, turn *api.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[chatID] = turn
}

// SetInterrupt marks a chat as waiting on value. A nil value clears it.
func (s *Server) SetInterrupt(chatID string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.interrupts, chatID)
		return
	}
	s.interrupts[chatID] = value
}

// QueueStream scripts the next stream opened for chatID. Unscripted
// streams send a single end frame.
func (s *Server) QueueStream(chatID string, frames ...Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[chatID] = append(s.streams[chatID], frames)
}

// FailRoute makes every request to "METHOD /path" (relative to the API
// root, e.g. "POST /chat/c1") answer status with body.
func (s *Server) FailRoute(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, body: body}
}

// =============================================================================
// RECORDS
// =============================================================================

// Prompts returns the recorded prompts.
func (s *Server) Prompts() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Prompt(nil), s.prompts...)
}

// Resumes returns the recorded resumes.
func (s *Server) Resumes() []Resume {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Resume(nil), s.resumes...)
}

// StreamOpens returns how many streams were opened for chatID.
func (s *Server) StreamOpens(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamOpens[chatID]
}

// Uploads returns the recorded uploads.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Queries returns the recorded document queries.
func (s *Server) Queries() []api.DocumentQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.DocumentQuery(nil), s.queries...)
}

// DeletedDocuments returns the ids of deleted documents.
func (s *Server) DeletedDocuments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletedDocs...)
}

// DeletedChats returns the ids of deleted chats.
func (s *Server) DeletedChats() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletedChat...)
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) failMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
		s.mu.Lock()
		f, ok := s.failures[route]
		s.mu.Unlock()
		if ok {
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cats := s.categories
	s.mu.Unlock()
	if cats == nil {
		cats = []api.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleSearchPaths(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	paths := s.searchPaths
	s.mu.Unlock()
	if paths == nil {
		paths = []api.SearchPath{}
	}
	writeJSON(w, http.StatusOK, paths)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	var q api.DocumentQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.queries = append(s.queries, q)
	rows := make([]map[string]string, 0, len(s.documents))
	for _, d := range s.documents {
		if q.File != "" && !strings.Contains(strings.ToLower(d["original_file_name"]), strings.ToLower(q.File)) {
			continue
		}
		if q.Folder != "" && d["folder"] != q.Folder {
			continue
		}
		if q.Author != "" && d["author"] != q.Author {
			continue
		}
		rows = append(rows, d)
	}
	s.mu.Unlock()

	if q.SortField != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			if q.SortDir == api.SortDesc {
				return rows[i][q.SortField] > rows[j][q.SortField]
			}
			return rows[i][q.SortField] < rows[j][q.SortField]
		})
	}

	page, size := q.Page, q.Size
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	start := (page - 1) * size
	end := start + size
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows[start:end], "total": len(rows)})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file part"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file part"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	fields := make(map[string]string)
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{FileName: header.Filename, Content: string(data), Fields: fields})
	id := fmt.Sprintf("doc-%d", len(s.uploads))
	row := map[string]string{
		"id":                 id,
		"original_file_name": header.Filename,
		"folder":             fields["search_path"],
		"author":             fields["file_author"],
		"created_at":         fields["created_date"],
		"updated_at":         fields["updated_date"],
	}
	s.documents = append(s.documents, row)
	s.files[id] = data
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "File uploaded successfully"})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	chunks := s.content[id]
	s.mu.Unlock()
	if chunks == nil {
		chunks = []api.ContentChunk{}
	}
	writeJSON(w, http.StatusOK, chunks)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	data, ok := s.files[id]
	name := id
	for _, d := range s.documents {
		if d["id"] == id && d["original_file_name"] != "" {
			name = d["original_file_name"]
		}
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File not found"})
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	s.deletedDocs = append(s.deletedDocs, id)
	kept := s.documents[:0]
	for _, d := range s.documents {
		if d["id"] != id {
			kept = append(kept, d)
		}
	}
	s.documents = kept
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, "Meta data updated successfully")
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.nextChatID++
	id := "chat-" + strconv.Itoa(s.nextChatID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"chat_id": id})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	turns := s.history[id]
	s.mu.Unlock()

	states := make([]map[string]any, 0, len(turns))
	for _, t := range turns {
		states = append(states, map[string]any{"last_conversation": t, "is_finalized": true})
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req api.PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.mu.Lock()
	s.prompts = append(s.prompts, Prompt{ChatID: chi.URLParam(r, "id"), Request: req})
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Ok")
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	s.deletedChat = append(s.deletedChat, id)
	delete(s.history, id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, "session cleared successfully")
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	s.streamOpens[id]++
	frames := []Frame{End()}
	if queue := s.streams[id]; len(queue) > 0 {
		frames = queue[0]
		s.streams[id] = queue[1:]
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for _, f := range frames {
		if f.Block {
			if flusher != nil {
				flusher.Flush()
			}
			<-r.Context().Done()
			return
		}
		if f.Event != "" {
			fmt.Fprintf(w, "event: %s\n", f.Event)
		}
		fmt.Fprintf(w, "data: %s\n\n", f.Data)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleCurrentState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	turn := s.current[id]
	s.mu.Unlock()
	if turn == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "Ok")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"last_conversation": turn})
}

func (s *Server) handleInterruptStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	value, ok := s.interrupts[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"has_interrupt": false, "interrupt_data": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"has_interrupt":  true,
		"interrupt_data": []any{map[string]any{"value": value}},
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.resumes = append(s.resumes, Resume{ChatID: id, Payload: json.RawMessage(body)})
	delete(s.interrupts, id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, "Ok")
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

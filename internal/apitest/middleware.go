package apitest

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"
)

const maxRecordedBody = 11 << 20

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(r.Body, maxRecordedBody))
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		req := Request{Method: r.Method, Path: r.URL.Path, Body: body}
		if c, err := r.Cookie("session"); err == nil {
			req.Session = c.Value
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Session == "" {
			next.ServeHTTP(w, r)
			return
		}
		c, err := r.Cookie("session")
		if err != nil || c.Value != s.opts.Session {
			w.Header().Set("Content-Type", "application/json")
			ERROR(w, http.StatusUnauthorized, errors.New("login required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// inject applies configured delays and failures ahead of the real handler.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		f, failing := s.failures[key]
		delay := s.delays[key]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if !failing {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if f.app {
			JSON(w, f.status, map[string]any{"success": false, "error": f.message})
			return
		}
		ERROR(w, f.status, errors.New(f.message))
	})
}

// Package wordpress reads quizzes and posts from the site's headless
// WordPress backend.
package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"stfc-quiz-service/internal/domain"
)

const (
	quizPath = "/wp-json/stfc/v1/quiz/"
	postPath = "/wp-json/wp/v2/posts/"

	defaultTimeout = 10 * time.Second
)

// Client talks to the content backend. Requests are never retried: a failed
// load is reported to the player as is.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "stfc-quiz-service",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		log: log,
	}
}

// LoadQuiz implements the quiz loader used by the quiz repositories.
func (c *Client) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var dto quizDTO
	status, err := c.getJSON(ctx, quizPath+url.PathEscape(quizID), &dto)
	if err != nil {
		if status == fasthttp.StatusNotFound {
			return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
		}
		return domain.Quiz{}, fmt.Errorf("%w: %w", domain.ErrQuizUnavailable, err)
	}
	quiz := dto.toDomain()
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	return quiz, nil
}

// LoadPost fetches a blog post with its rendered HTML.
func (c *Client) LoadPost(ctx context.Context, postID string) (domain.Post, error) {
	var dto postDTO
	if _, err := c.getJSON(ctx, postPath+url.PathEscape(postID), &dto); err != nil {
		return domain.Post{}, fmt.Errorf("%w: %w", domain.ErrPostUnavailable, err)
	}
	post := domain.Post{
		ID:      string(dto.ID),
		Title:   string(dto.Title),
		Content: string(dto.Content),
	}
	if post.ID == "" {
		post.ID = postID
	}
	return post, nil
}

// getJSON issues a GET and decodes a 2xx body into out. The returned status
// is 0 when no response was received.
func (c *Client) getJSON(ctx context.Context, path string, out any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		c.log.Warn("content backend unreachable", zap.String("path", path), zap.Error(err))
		return 0, fmt.Errorf("get %s: %w", path, err)
	}

	status := resp.StatusCode()
	c.log.Debug("content backend request",
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
	)
	if status < 200 || status >= 300 {
		return status, fmt.Errorf("get %s: unexpected status %d", path, status)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return status, fmt.Errorf("decode %s: %w", path, err)
	}
	return status, nil
}

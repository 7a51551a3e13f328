package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/studyflow-api/internal/middleware"
	"github.com/studyflow/studyflow-api/internal/models"
	"github.com/studyflow/studyflow-api/internal/repository"
	"github.com/studyflow/studyflow-api/internal/service"
)

type handlerTaskRepo struct {
	tasks map[string]*models.Task
	seq   int
}

func (r *handlerTaskRepo) List(ctx context.Context, userID string, filter repository.TaskFilter) ([]models.Task, int, error) {
	var out []models.Task
	for _, t := range r.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, len(out), nil
}

func (r *handlerTaskRepo) FindByID(ctx context.Context, id string) (*models.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (r *handlerTaskRepo) Create(ctx context.Context, task *models.Task) error {
	r.seq++
	task.ID = fmt.Sprintf("task-%d", r.seq)
	r.tasks[task.ID] = task
	return nil
}

func (r *handlerTaskRepo) Update(ctx context.Context, task *models.Task) error {
	r.tasks[task.ID] = task
	return nil
}

func (r *handlerTaskRepo) UpdateRemaining(ctx context.Context, id string, remaining int, status models.TaskStatus) error {
	t := r.tasks[id]
	t.RemainingMinutes = remaining
	t.Status = status
	return nil
}

func (r *handlerTaskRepo) MarkOverdue(ctx context.Context, userID string, asOf time.Time) (int64, error) {
	return 0, nil
}

func (r *handlerTaskRepo) Delete(ctx context.Context, id string) error {
	delete(r.tasks, id)
	return nil
}

type handlerCourseRepo struct {
	courses map[string]*models.Course
}

func (r *handlerCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type handlerSessionRepo struct{}

func (r *handlerSessionRepo) DeleteByTask(ctx context.Context, taskID string) error {
	return nil
}

func newTaskRouter(t *testing.T, userID string) (*gin.Engine, *handlerTaskRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	taskRepo := &handlerTaskRepo{tasks: map[string]*models.Task{}}
	courseRepo := &handlerCourseRepo{courses: map[string]*models.Course{
		"2b9f0d41-9f1e-4a8c-92aa-aa45c4d3f001": {ID: "2b9f0d41-9f1e-4a8c-92aa-aa45c4d3f001", UserID: "user-1", Title: "Algorithms"},
	}}
	svc := service.NewTaskService(taskRepo, courseRepo, &handlerSessionRepo{}, nil, nil)
	h := NewTaskHandler(svc)

	router := gin.New()
	if userID != "" {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: models.RoleStudent})
			c.Next()
		})
	}
	router.GET("/tasks", h.List)
	router.POST("/tasks", h.Create)
	router.POST("/tasks/:id/complete", h.Complete)
	return router, taskRepo
}

func validTaskPayload() []byte {
	due := time.Now().UTC().AddDate(0, 0, 7).Format(time.RFC3339)
	return []byte(`{"courseId":"2b9f0d41-9f1e-4a8c-92aa-aa45c4d3f001","title":"Problem set","dueAt":"` + due + `","priority":"high","estimatedMinutes":120}`)
}

func TestTaskHandlerCreate(t *testing.T) {
	router, repo := newTaskRouter(t, "user-1")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(validTaskPayload()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.tasks, 1)
	for _, task := range repo.tasks {
		require.Equal(t, "user-1", task.UserID)
		require.Equal(t, 120, task.RemainingMinutes)
		require.Equal(t, models.TaskStatusPending, task.Status)
	}
}

func TestTaskHandlerCreateValidation(t *testing.T) {
	router, _ := newTaskRouter(t, "user-1")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/tasks", bytes.NewReader([]byte(`{"title":""}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandlerUnauthorized(t *testing.T) {
	router, _ := newTaskRouter(t, "")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/tasks", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTaskHandlerForeignCourse(t *testing.T) {
	router, _ := newTaskRouter(t, "user-2")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(validTaskPayload()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandlerComplete(t *testing.T) {
	router, repo := newTaskRouter(t, "user-1")
	repo.tasks["task-9"] = &models.Task{
		ID:               "task-9",
		UserID:           "user-1",
		CourseID:         "2b9f0d41-9f1e-4a8c-92aa-aa45c4d3f001",
		Title:            "Reading",
		Status:           models.TaskStatusScheduled,
		EstimatedMinutes: 60,
		RemainingMinutes: 45,
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/tasks/task-9/complete", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.Task `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, models.TaskStatusCompleted, envelope.Data.Status)
	require.Equal(t, 0, envelope.Data.RemainingMinutes)
}

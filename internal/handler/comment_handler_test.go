package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm-service/internal/model"
)

func TestComments(t *testing.T) {
	db := setupTestDB(t)
	e, jwt := newTestServer(t, db)

	acme := createTestCustomer(t, db, "Acme Inc", "acmeinc")
	globex := createTestCustomer(t, db, "Globex", "globex")
	project := createTestProject(t, db, acme.ID, "Website Redesign")
	task := createTestTask(t, db, acme.ID, project.ID, "Draft homepage", model.TaskStatusTodo)

	author := createTestUser(t, db, &acme.ID, "dev@acme.com", model.RoleUser, "secret123")
	token := tokenFor(t, jwt, author)

	t.Run("create attributes the author", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodPost, "/api/comments", token, map[string]string{
			"task_id": task.ID,
			"content": "Looks good so far",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, author.ID, body["author_user_id"])
		assert.Equal(t, task.ID, body["task_id"])
		assert.Equal(t, acme.ID, body["customer_id"])
	})

	t.Run("create requires task and content", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodPost, "/api/comments", token, map[string]string{
			"task_id": task.ID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cannot comment on another customer's task", func(t *testing.T) {
		foreignProject := createTestProject(t, db, globex.ID, "Globex Internal")
		foreignTask := createTestTask(t, db, globex.ID, foreignProject.ID, "Foreign", model.TaskStatusTodo)

		rec := doRequest(t, e, http.MethodPost, "/api/comments", token, map[string]string{
			"task_id": foreignTask.ID,
			"content": "Sneaky",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list by task", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodGet, "/api/comments?task_id="+task.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Looks good so far")

		missingTask := doRequest(t, e, http.MethodGet, "/api/comments", token, nil)
		assert.Equal(t, http.StatusBadRequest, missingTask.Code)
	})

	t.Run("update and delete", func(t *testing.T) {
		comment := model.Comment{
			CustomerID:   acme.ID,
			TaskID:       task.ID,
			AuthorUserID: author.ID,
			Content:      "first draft",
		}
		require.NoError(t, db.Create(&comment).Error)

		update := doRequest(t, e, http.MethodPatch, "/api/comments/"+comment.ID, token, map[string]string{
			"content": "second draft",
		})
		require.Equal(t, http.StatusOK, update.Code)

		var updated model.Comment
		require.NoError(t, db.First(&updated, "id = ?", comment.ID).Error)
		assert.Equal(t, "second draft", updated.Content)

		del := doRequest(t, e, http.MethodDelete, "/api/comments/"+comment.ID, token, nil)
		require.Equal(t, http.StatusOK, del.Code)

		var count int64
		require.NoError(t, db.Model(&model.Comment{}).Where("id = ?", comment.ID).Count(&count).Error)
		assert.Zero(t, count)
	})
}

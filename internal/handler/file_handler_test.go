package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm-service/internal/model"
)

func TestFileAttachments(t *testing.T) {
	db := setupTestDB(t)
	e, jwt := newTestServer(t, db)

	acme := createTestCustomer(t, db, "Acme Inc", "acmeinc")
	globex := createTestCustomer(t, db, "Globex", "globex")
	project := createTestProject(t, db, acme.ID, "Website Redesign")
	task := createTestTask(t, db, acme.ID, project.ID, "Draft homepage", model.TaskStatusTodo)

	uploader := createTestUser(t, db, &acme.ID, "dev@acme.com", model.RoleUser, "secret123")
	token := tokenFor(t, jwt, uploader)

	t.Run("attach to a task", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodPost, "/api/files", token, map[string]string{
			"file_url":  "https://storage.example.com/mockup.png",
			"file_name": "mockup.png",
			"task_id":   task.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, uploader.ID, body["uploaded_by_user_id"])
		assert.Equal(t, acme.ID, body["customer_id"])
	})

	t.Run("attach to a project", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodPost, "/api/files", token, map[string]string{
			"file_url":   "https://storage.example.com/brief.pdf",
			"file_name":  "brief.pdf",
			"project_id": project.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("requires a parent", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodPost, "/api/files", token, map[string]string{
			"file_url":  "https://storage.example.com/orphan.txt",
			"file_name": "orphan.txt",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires url and name", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodPost, "/api/files", token, map[string]string{
			"file_name": "nameless.txt",
			"task_id":   task.ID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cannot attach to another customer's project", func(t *testing.T) {
		foreign := createTestProject(t, db, globex.ID, "Globex Internal")
		rec := doRequest(t, e, http.MethodPost, "/api/files", token, map[string]string{
			"file_url":   "https://storage.example.com/sneaky.txt",
			"file_name":  "sneaky.txt",
			"project_id": foreign.ID,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list filters by task", func(t *testing.T) {
		rec := doRequest(t, e, http.MethodGet, "/api/files?task_id="+task.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "mockup.png")
		assert.NotContains(t, rec.Body.String(), "brief.pdf")
	})

	t.Run("rename and delete", func(t *testing.T) {
		file := model.FileAttachment{
			CustomerID:       acme.ID,
			TaskID:           &task.ID,
			UploadedByUserID: uploader.ID,
			FileURL:          "https://storage.example.com/old.txt",
			FileName:         "old.txt",
		}
		require.NoError(t, db.Create(&file).Error)

		rename := doRequest(t, e, http.MethodPatch, "/api/files/"+file.ID, token, map[string]string{
			"file_name": "new.txt",
		})
		require.Equal(t, http.StatusOK, rename.Code)

		var renamed model.FileAttachment
		require.NoError(t, db.First(&renamed, "id = ?", file.ID).Error)
		assert.Equal(t, "new.txt", renamed.FileName)

		del := doRequest(t, e, http.MethodDelete, "/api/files/"+file.ID, token, nil)
		require.Equal(t, http.StatusOK, del.Code)

		var count int64
		require.NoError(t, db.Model(&model.FileAttachment{}).Where("id = ?", file.ID).Count(&count).Error)
		assert.Zero(t, count)
	})
}

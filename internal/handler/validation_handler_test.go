package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"sheetwatch/internal/config"
	"sheetwatch/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRunWithoutQueueDoesNotPersist(t *testing.T) {
	// No database behind the repository: if StartRun tried to persist the
	// run before noticing the missing queue client, this would panic
	// instead of answering 503.
	h := NewValidationHandler(repository.NewRunRepository(nil), nil, nil, &config.Config{})

	app := fiber.New()
	app.Post("/validations", func(c *fiber.Ctx) error {
		c.Locals("user_id", 1)
		return h.StartRun(c)
	})

	resp := postJSON(t, app, "/validations", `{}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "not available")
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sheetwatch/internal/config"
	"sheetwatch/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubSummarizer struct {
	response string
	err      error
}

func (s *stubSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func newChatApp(summarizer service.Summarizer, store service.StatusStore) *fiber.App {
	return newChatAppWithWorkbook(summarizer, store, "")
}

// newChatAppWithWorkbook wires the chat handler onto a command service
// targeting the given workbook path.
func newChatAppWithWorkbook(summarizer service.Summarizer, store service.StatusStore, workbookPath string) *fiber.App {
	logger, _ := test.NewNullLogger()
	commands := service.NewSheetCommandService(workbookPath, "Bin", summarizer, logger)

	app := fiber.New()
	h := NewChatHandler(summarizer, commands, store, &config.Config{AITimeout: time.Second})
	app.Post("/get_response", h.GetResponse)
	app.Post("/send_to_chatbot", h.SendToChatbot)
	return app
}

func writeChatWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Bin"))
	for i, row := range rows {
		r := row
		require.NoError(t, f.SetSheetRow("Bin", fmt.Sprintf("A%d", i+1), &r))
	}

	path := filepath.Join(t.TempDir(), "warehouse.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func postJSON(t *testing.T, app *fiber.App, path, payload string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestGetResponse(t *testing.T) {
	app := newChatApp(&stubSummarizer{response: "All clear."}, service.NewMemoryStatusStore())

	resp := postJSON(t, app, "/get_response", `{"message":"is the sheet ok?"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "All clear.", decodeBody(t, resp)["response"])
}

func TestGetResponseMissingMessage(t *testing.T) {
	app := newChatApp(&stubSummarizer{}, service.NewMemoryStatusStore())

	resp := postJSON(t, app, "/get_response", `{}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetResponseUpstreamFailure(t *testing.T) {
	app := newChatApp(&stubSummarizer{err: errors.New("model unavailable")}, service.NewMemoryStatusStore())

	resp := postJSON(t, app, "/get_response", `{"message":"hello"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestGetResponseWithoutSummarizer(t *testing.T) {
	app := newChatApp(nil, service.NewMemoryStatusStore())

	resp := postJSON(t, app, "/get_response", `{"message":"hello"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetResponseDeleteDuplicatesCommand(t *testing.T) {
	path := writeChatWorkbook(t, [][]string{
		{"Warehouse", "SKU"},
		{"WH1", "SKU-1"},
		{"WH1", "SKU-1"},
	})
	app := newChatAppWithWorkbook(&stubSummarizer{}, service.NewMemoryStatusStore(), path)

	resp := postJSON(t, app, "/get_response", `{"message":"delete duplicate rows"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1 duplicate rows deleted.", decodeBody(t, resp)["response"])

	// The command must act on the workbook, not the LLM
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bin")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGetResponseUpdateCommand(t *testing.T) {
	path := writeChatWorkbook(t, [][]string{
		{"Warehouse", "SKU"},
		{"WH1", "SKU-1"},
	})
	summarizer := &stubSummarizer{
		response: `{"headers":["Warehouse","SKU"],"data":[["WH2","SKU-1"]]}`,
	}
	app := newChatAppWithWorkbook(summarizer, service.NewMemoryStatusStore(), path)

	resp := postJSON(t, app, "/get_response", `{"message":"update: move everything to WH2"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp)["response"], "successful")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bin")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"WH2", "SKU-1"}, rows[1])
}

func TestGetResponseCommandFailure(t *testing.T) {
	// Missing workbook, the command path answers 500 instead of falling
	// through to the LLM
	app := newChatAppWithWorkbook(&stubSummarizer{response: "should not be used"},
		service.NewMemoryStatusStore(), filepath.Join(t.TempDir(), "nope.xlsx"))

	resp := postJSON(t, app, "/get_response", `{"message":"delete duplicate rows"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSendToChatbotStoresResponse(t *testing.T) {
	store := service.NewMemoryStatusStore()
	app := newChatApp(&stubSummarizer{}, store)

	resp := postJSON(t, app, "/send_to_chatbot", `{"response":"Check row 4."}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	text, err := store.LatestResponse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Check row 4.", text)
}

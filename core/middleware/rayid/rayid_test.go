package rayid

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(seen *string) *fiber.App {
	app := fiber.New()
	app.Use(New())
	app.Get("/", func(c *fiber.Ctx) error {
		*seen, _ = c.Locals(LocalsKey).(string)
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestNew_GeneratesID(t *testing.T) {
	var seen string
	resp, err := newApp(&seen).Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	header := resp.Header.Get(Header)
	assert.Equal(t, seen, header)
	_, err = uuid.Parse(header)
	assert.NoError(t, err)
}

func TestNew_KeepsIncomingID(t *testing.T) {
	var seen string
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(Header, "upstream-42")

	resp, err := newApp(&seen).Test(req)
	require.NoError(t, err)
	assert.Equal(t, "upstream-42", seen)
	assert.Equal(t, "upstream-42", resp.Header.Get(Header))
}

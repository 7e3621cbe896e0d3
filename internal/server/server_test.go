package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/middleware"
	"github.com/joseph-ayodele/zero-paper-user/internal/routes"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
	"github.com/joseph-ayodele/zero-paper-user/internal/upstream"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakeUpstream records calls and answers from a per-op table.
type fakeUpstream struct {
	calls   []*transport.Request
	bearers []string
	answers map[transport.Op]*transport.Response
	err     error
}

func (f *fakeUpstream) Call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.calls = append(f.calls, req)
	f.bearers = append(f.bearers, common.BearerFromContext(ctx))
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.answers[req.Op]; ok {
		return resp, nil
	}
	return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"success":true}`)}, nil
}

func jsonResp(status int, body string) *transport.Response {
	return &transport.Response{StatusCode: status, Body: []byte(body)}
}

func testConfig() *common.Config {
	return &common.Config{
		Server: common.ServerConfig{CORSOrigins: []string{"*"}},
		OTP:    common.OTPConfig{PerMinute: 1, Burst: 1},
	}
}

func newTestRouter(up Upstream) http.Handler {
	cfg := testConfig()
	return NewRouter(cfg, New(up, middleware.NewRateLimiter(cfg.OTP, quiet()), quiet()))
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var bearer = map[string]string{"Authorization": "Bearer tok-1"}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAuthRequiresCredentials(t *testing.T) {
	up := &fakeUpstream{}
	h := newTestRouter(up)

	for _, body := range []string{`{}`, `{"email":"a@b.c"}`, `{"password":"x"}`, `{"email":"","password":""}`} {
		rec := do(t, h, http.MethodPost, routes.PathAuth, body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, decode(t, rec)["error"], body)
	}
	assert.Empty(t, up.calls)
}

func TestAuthForwardsLogin(t *testing.T) {
	up := &fakeUpstream{answers: map[transport.Op]*transport.Response{
		routes.Login: jsonResp(http.StatusOK, `{"token":"t","user":{"uid":"u-1"}}`),
	}}
	rec := do(t, newTestRouter(up), http.MethodPost, routes.PathAuth, `{"email":"a@b.c","password":"pw"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"t","user":{"uid":"u-1"}}`, rec.Body.String())

	require.Len(t, up.calls, 1)
	assert.Equal(t, routes.Login, up.calls[0].Op)
	assert.JSONEq(t, `{"email":"a@b.c","password":"pw"}`, string(up.calls[0].Body))
}

func TestLoginNormalizes(t *testing.T) {
	up := &fakeUpstream{answers: map[transport.Op]*transport.Response{
		routes.Login: jsonResp(http.StatusOK, `{"data":{"accessToken":"t-9","refresh_token":"r-9","user":{"uid":"u-1"}}}`),
	}}
	rec := do(t, newTestRouter(up), http.MethodPost, routes.PathLogin, `{"email":"a@b.c","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "t-9", out["token"])
	assert.Equal(t, "r-9", out["refreshToken"])
	assert.Equal(t, map[string]any{"uid": "u-1"}, out["data"])
}

func TestLoginRelaysFailure(t *testing.T) {
	up := &fakeUpstream{answers: map[transport.Op]*transport.Response{
		routes.Login: jsonResp(http.StatusUnauthorized, `{"message":"bad password"}`),
	}}
	rec := do(t, newTestRouter(up), http.MethodPost, routes.PathLogin, `{"email":"a@b.c","password":"pw"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "bad password", out["error"])
}

func TestAddReceiptRequiresUID(t *testing.T) {
	up := &fakeUpstream{}
	h := newTestRouter(up)

	for _, path := range []string{routes.PathReceiptsAdd, routes.PathReceipts} {
		rec := do(t, h, http.MethodPost, path, `{"price":"12.50","productName":"x"}`, bearer)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, []any{"uid"}, decode(t, rec)["fields"])
	}
	assert.Empty(t, up.calls)
}

func TestAddReceiptCoercesAndForwards(t *testing.T) {
	up := &fakeUpstream{answers: map[transport.Op]*transport.Response{
		routes.CreateReceipt: jsonResp(http.StatusCreated, `{"id":"r-1"}`),
	}}
	body := `{"uid":"u-1","price":"12.50","productName":"Ibuprofen","category":"medical",
		"date":"25.12.2023 14:30","storeName":"Apotheke","currency":"EUR"}`
	rec := do(t, newTestRouter(up), http.MethodPost, routes.PathReceiptsAdd, body, bearer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, up.calls, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(up.calls[0].Body, &sent))
	assert.Equal(t, 12.5, sent["price"])
	assert.Equal(t, "2023-12-25T14:30:00.000Z", sent["date"])
	assert.Equal(t, "tok-1", up.bearers[0])
}

func TestAddReceiptNeedsAuthorization(t *testing.T) {
	rec := do(t, newTestRouter(&fakeUpstream{}), http.MethodPost, routes.PathReceiptsAdd, `{"uid":"u-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddReceiptMissingFields(t *testing.T) {
	rec := do(t, newTestRouter(&fakeUpstream{}), http.MethodPost, routes.PathReceiptsAdd, `{"uid":"u-1","price":"abc"}`, bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"productName", "category", "date", "storeName", "currency"}, decode(t, rec)["fields"])
}

func TestDeleteReceiptValidation(t *testing.T) {
	up := &fakeUpstream{}
	h := newTestRouter(up)

	rec := do(t, h, http.MethodDelete, routes.PathReceiptsDelete, "", bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, routes.PathReceiptsDelete+"?id=9", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// missing id wins over missing auth
	rec = do(t, h, http.MethodDelete, routes.PathReceiptsDelete, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, up.calls)

	rec = do(t, h, http.MethodDelete, routes.PathReceiptsDelete+"?id=9", "", bearer)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, up.calls, 1)
	assert.Equal(t, map[string]string{"id": "9"}, up.calls[0].Params)
}

func TestDeleteReceiptIDFromBody(t *testing.T) {
	up := &fakeUpstream{}
	rec := do(t, newTestRouter(up), http.MethodDelete, routes.PathReceipts, `{"id":"5"}`, bearer)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, up.calls, 1)
	assert.Equal(t, "5", up.calls[0].Params["id"])
}

func TestListReceipts(t *testing.T) {
	list := `[{"id":1,"category":"Business","price":10,"date":"2024-01-01T00:00:00.000Z"},
		{"id":2,"category":"Medical","price":30,"date":"2024-02-01T00:00:00.000Z"},
		{"id":3,"category":"medical","price":20,"date":"2024-03-01T00:00:00.000Z"}]`
	up := &fakeUpstream{answers: map[transport.Op]*transport.Response{
		routes.ListReceipts: jsonResp(http.StatusOK, list),
	}}
	h := newTestRouter(up)

	rec := do(t, h, http.MethodGet, routes.PathReceipts, "", bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, routes.PathReceipts+"?uid=u-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, routes.PathReceipts+"?uid=u-1", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, list, rec.Body.String())

	rec = do(t, h, http.MethodGet, routes.PathReceipts+"?uid=u-1&category=medical&sort=price", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0]["id"])
	assert.Equal(t, "3", got[1]["id"])
}

func TestProcessReceiptMultipart(t *testing.T) {
	up := &fakeUpstream{}
	h := newTestRouter(up)

	build := func(fields map[string]string, withImage bool) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			_ = mw.WriteField(k, v)
		}
		if withImage {
			fw, _ := mw.CreateFormFile("image", "scan.jpg")
			_, _ = fw.Write([]byte("jpegbytes"))
		}
		_ = mw.Close()
		return &buf, mw.FormDataContentType()
	}

	buf, ct := build(map[string]string{"uid": "u-1", "price": "5"}, false)
	req := httptest.NewRequest(http.MethodPost, routes.PathReceiptsProc, buf)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"productName", "category", "date", "storeName", "currency"}, decode(t, rec)["fields"])

	buf, ct = build(map[string]string{
		"uid": "u-1", "price": "12.50", "productName": "Ibuprofen", "category": "medical",
		"date": "25.12.2023 14:30", "storeName": "Apotheke", "currency": "EUR",
		"refundableUptoDate": "01.01.2024 09:05",
	}, true)
	req = httptest.NewRequest(http.MethodPost, routes.PathReceiptsProc, buf)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, up.calls, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(up.calls[0].Body, &sent))
	assert.Equal(t, "2023-12-25T14:30:00.000Z", sent["date"])
	assert.Equal(t, "2024-01-01T09:05:00.000Z", sent["refundableUptoDate"])
	assert.Equal(t, 12.5, sent["price"])
	assert.True(t, strings.HasPrefix(sent["image"].(string), "data:image/jpeg;base64,"))
}

func TestReceiptImage(t *testing.T) {
	up := &fakeUpstream{answers: map[transport.Op]*transport.Response{
		routes.ReceiptImage: jsonResp(http.StatusOK, `"aGVsbG8="`),
	}}
	h := newTestRouter(up)

	rec := do(t, h, http.MethodGet, routes.PathReceiptImage, "", bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, routes.PathReceiptImage+"?receiptId=4", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"image":"aGVsbG8="}`, rec.Body.String())
	assert.Equal(t, "4", up.calls[0].Params["receiptId"])
}

func TestSummaryAndExport(t *testing.T) {
	up := &fakeUpstream{answers: map[transport.Op]*transport.Response{
		routes.ListReceipts: jsonResp(http.StatusOK, `{"data":[
			{"id":1,"category":"medical","price":"10.10","currency":"EUR","date":"2024-01-05T00:00:00.000Z","storeName":"A"},
			{"id":2,"category":"medical","price":0.2,"currency":"EUR","date":"2024-01-06T00:00:00.000Z","storeName":"A"}]}`),
	}}
	h := newTestRouter(up)

	rec := do(t, h, http.MethodGet, routes.PathReceiptsSum+"?uid=u-1", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.EqualValues(t, 2, out["count"])
	totals := out["totals"].([]any)
	require.Len(t, totals, 1)
	assert.Equal(t, "10.3", totals[0].(map[string]any)["total"])

	rec = do(t, h, http.MethodGet, routes.PathReceiptsExport+"?uid=u-1", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Receipts")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRefreshToken(t *testing.T) {
	up := &fakeUpstream{answers: map[transport.Op]*transport.Response{
		routes.RefreshToken: jsonResp(http.StatusOK, `{"accessToken":"t-2"}`),
	}}
	h := newTestRouter(up)

	rec := do(t, h, http.MethodPost, routes.PathRefreshToken, `{"refreshToken":"r-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, routes.PathRefreshToken, `{}`, bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, routes.PathRefreshToken, `{"refreshToken":"r-1"}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"t-2","refreshToken":"r-1"}`, rec.Body.String())
}

func TestOTPIsRateLimited(t *testing.T) {
	h := newTestRouter(&fakeUpstream{})
	rec := do(t, h, http.MethodPost, routes.PathSendOTP, `{"email":"a@b.c"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, routes.PathSendOTP, `{"email":"a@b.c"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(t, h, http.MethodPost, routes.PathSendOTP, `{"email":"not-an-email"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpstreamUnavailable(t *testing.T) {
	h := newTestRouter(&fakeUpstream{err: errors.New("dial tcp: connection refused")})
	rec := do(t, h, http.MethodPost, routes.PathVerifyOTP, `{"email":"a@b.c","otp":"123456"}`, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])
}

func TestUpstreamTextErrorIsWrapped(t *testing.T) {
	up := &fakeUpstream{answers: map[transport.Op]*transport.Response{
		routes.ForgotPassword: jsonResp(http.StatusInternalServerError, "stack trace here"),
	}}
	rec := do(t, newTestRouter(up), http.MethodPost, routes.PathForgotPassword, `{"email":"a@b.c","newPassword":"x"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"stack trace here"}`, rec.Body.String())
}

func TestHealthAndNotFound(t *testing.T) {
	h := newTestRouter(&fakeUpstream{})
	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, routes.PathReceipts, "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// TestGatewayAgainstUpstreamClient runs the real upstream client against a
// fake zpu API.
func TestGatewayAgainstUpstreamClient(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/users/login":
			if r.URL.Query().Get("password") != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"bad credentials"}`)
				return
			}
			_, _ = io.WriteString(w, `{"token":"t-1","refreshToken":"r-1","user":{"uid":"u-1"}}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/receipts/9":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	up := upstream.NewClientWithHTTP(api.URL, api.Client(), quiet())
	h := newTestRouter(up)

	rec := do(t, h, http.MethodPost, routes.PathLogin, `{"email":"a@b.c","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "t-1", decode(t, rec)["token"])

	rec = do(t, h, http.MethodPost, routes.PathAuth, `{"email":"a@b.c","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"bad credentials"}`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, routes.PathReceiptsDelete+"?id=9", "", bearer)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

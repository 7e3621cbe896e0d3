// Package routes names every zpu operation and maps it onto the zpu API and
// onto this repository's gateway.
package routes

import (
	"net/http"

	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
)

const (
	Login          transport.Op = "login"
	Register       transport.Op = "register"
	SendOTP        transport.Op = "send_otp"
	VerifyOTP      transport.Op = "verify_otp"
	SendDeleteOTP  transport.Op = "send_delete_otp"
	DeleteAccount  transport.Op = "delete_account"
	ForgotPassword transport.Op = "forgot_password"
	RefreshToken   transport.Op = "refresh_token"
	ListReceipts   transport.Op = "list_receipts"
	CreateReceipt  transport.Op = "create_receipt"
	DeleteReceipt  transport.Op = "delete_receipt"
	ReceiptImage   transport.Op = "receipt_image"
)

// Upstream is the zpu API surface. Login takes its credentials as query
// parameters.
var Upstream = transport.RouteTable{
	Login:          {Method: http.MethodPost, Path: "/users/login", BodyAsQuery: true},
	Register:       {Method: http.MethodPost, Path: "/users/register"},
	SendOTP:        {Method: http.MethodPost, Path: "/otp/send"},
	VerifyOTP:      {Method: http.MethodPost, Path: "/otp/verify"},
	SendDeleteOTP:  {Method: http.MethodPost, Path: "/users/delete-otp"},
	DeleteAccount:  {Method: http.MethodPost, Path: "/users/delete"},
	ForgotPassword: {Method: http.MethodPost, Path: "/users/forgot-password"},
	RefreshToken:   {Method: http.MethodPost, Path: "/users/refresh-token"},
	ListReceipts:   {Method: http.MethodGet, Path: "/receipts/user/{uid}"},
	CreateReceipt:  {Method: http.MethodPost, Path: "/receipts"},
	DeleteReceipt:  {Method: http.MethodDelete, Path: "/receipts/{id}"},
	ReceiptImage:   {Method: http.MethodGet, Path: "/receipts/image/{receiptId}"},
}

// Gateway paths, shared by the router and the client's proxy strategy.
const (
	PathAuth           = "/api/auth"
	PathLogin          = "/api/users/login"
	PathRegister       = "/api/users/register"
	PathSendOTP        = "/api/otp/send"
	PathVerifyOTP      = "/api/otp/verify"
	PathSendDeleteOTP  = "/api/users/delete-otp"
	PathDeleteAccount  = "/api/users/delete"
	PathForgotPassword = "/api/users/forgot-password"
	PathRefreshToken   = "/api/refresh-token"
	PathReceipts       = "/api/receipts"
	PathReceiptsAdd    = "/api/receipts/add"
	PathReceiptsDelete = "/api/receipts/delete"
	PathReceiptsProc   = "/api/receipts/process"
	PathReceiptsSum    = "/api/receipts/summary"
	PathReceiptsExport = "/api/receipts/export"
	PathReceiptImage   = "/api/image-by-receipt"
)

// Gateway is the local proxy surface; ids travel as query parameters.
var Gateway = transport.RouteTable{
	Login:          {Method: http.MethodPost, Path: PathLogin},
	Register:       {Method: http.MethodPost, Path: PathRegister},
	SendOTP:        {Method: http.MethodPost, Path: PathSendOTP},
	VerifyOTP:      {Method: http.MethodPost, Path: PathVerifyOTP},
	SendDeleteOTP:  {Method: http.MethodPost, Path: PathSendDeleteOTP},
	DeleteAccount:  {Method: http.MethodPost, Path: PathDeleteAccount},
	ForgotPassword: {Method: http.MethodPost, Path: PathForgotPassword},
	RefreshToken:   {Method: http.MethodPost, Path: PathRefreshToken},
	ListReceipts:   {Method: http.MethodGet, Path: PathReceipts},
	CreateReceipt:  {Method: http.MethodPost, Path: PathReceiptsAdd},
	DeleteReceipt:  {Method: http.MethodDelete, Path: PathReceiptsDelete},
	ReceiptImage:   {Method: http.MethodGet, Path: PathReceiptImage},
}

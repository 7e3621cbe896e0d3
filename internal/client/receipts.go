package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
	"github.com/joseph-ayodele/zero-paper-user/internal/receipts"
	"github.com/joseph-ayodele/zero-paper-user/internal/routes"
	"github.com/joseph-ayodele/zero-paper-user/internal/session"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
	"github.com/joseph-ayodele/zero-paper-user/internal/upstream"
)

type ReceiptService struct {
	caller
}

func NewReceiptService(chain *transport.Chain, sess *session.Session, logger *slog.Logger) *ReceiptService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptService{caller{chain: chain, session: sess, logger: logger}}
}

// List returns the receipts of uid, or of the logged-in user when uid is
// empty.
func (s *ReceiptService) List(ctx context.Context, uid string) common.Result[[]entity.Receipt] {
	uid, f := s.resolveUID(ctx, uid)
	if f != nil {
		return common.FailWith[[]entity.Receipt](f)
	}
	req := &transport.Request{Op: routes.ListReceipts, Params: map[string]string{"uid": uid}}
	resp, f := s.do(ctx, req, true)
	if f != nil {
		return common.FailWith[[]entity.Receipt](f)
	}
	list, err := upstream.NormalizeReceipts(resp.Body)
	if err != nil {
		s.logger.Error("client.receipts.decode_error", "error", err)
		return common.Fail[[]entity.Receipt](common.KindUpstream, "could not read the receipt list")
	}
	return common.Ok(list)
}

// Add creates a receipt. imagePath, when set, is attached as a base64 data
// URL. The uid defaults to the logged-in user.
func (s *ReceiptService) Add(ctx context.Context, in entity.ReceiptInput, imagePath string) common.Result[entity.Receipt] {
	uid, f := s.resolveUID(ctx, in.UID)
	if f != nil {
		return common.FailWith[entity.Receipt](f)
	}
	in.UID = uid

	if imagePath != "" {
		img, err := readAsDataURL(imagePath)
		if err != nil {
			return common.FailWith[entity.Receipt](&common.Failure{
				Kind: common.KindValidation, Status: http.StatusBadRequest,
				Message: err.Error(), Fields: []string{"image"},
			})
		}
		in.Image = img
	}

	doc, err := toDocument(in)
	if err != nil {
		return common.Fail[entity.Receipt](common.KindInternal, err.Error())
	}
	doc, err = receipts.PrepareCreate(doc)
	if err != nil {
		var invalid *receipts.InvalidReceiptError
		if errors.As(err, &invalid) {
			return common.FailWith[entity.Receipt](&common.Failure{
				Kind: common.KindValidation, Status: http.StatusBadRequest,
				Message: invalid.Message, Fields: invalid.Fields,
			})
		}
		return common.Fail[entity.Receipt](common.KindInternal, err.Error())
	}
	in.Date, _ = doc["date"].(string)
	in.ValidUptoDate, _ = doc["validUptoDate"].(string)
	in.RefundableUptoDate, _ = doc["refundableUptoDate"].(string)

	req, err := transport.NewJSONRequest(routes.CreateReceipt, nil, doc)
	if err != nil {
		return common.Fail[entity.Receipt](common.KindInternal, err.Error())
	}
	resp, f := s.do(ctx, req, true)
	if f != nil {
		return common.FailWith[entity.Receipt](f)
	}
	return common.Ok(createdReceipt(resp.Body, in))
}

// Delete removes a receipt by id.
func (s *ReceiptService) Delete(ctx context.Context, id string) common.Result[string] {
	v := common.NewValidator().Field("id", id, common.Required)
	if v.HasErrors() {
		return validationFailure[string](v)
	}
	req := &transport.Request{Op: routes.DeleteReceipt, Params: map[string]string{"id": id}}
	resp, f := s.do(ctx, req, true)
	if f != nil {
		return common.FailWith[string](f)
	}
	return common.Ok(successMessage(resp.Body, "receipt deleted"))
}

// Image returns the base64 image stored for a receipt.
func (s *ReceiptService) Image(ctx context.Context, receiptID string) common.Result[string] {
	v := common.NewValidator().Field("receiptId", receiptID, common.Required)
	if v.HasErrors() {
		return validationFailure[string](v)
	}
	req := &transport.Request{Op: routes.ReceiptImage, Params: map[string]string{"receiptId": receiptID}}
	resp, f := s.do(ctx, req, true)
	if f != nil {
		return common.FailWith[string](f)
	}
	img := upstream.NormalizeImage(resp.Body)
	if img == "" {
		return common.Fail[string](common.KindUpstream, "receipt has no image")
	}
	return common.Ok(img)
}

func (s *ReceiptService) resolveUID(ctx context.Context, uid string) (string, *common.Failure) {
	if uid != "" {
		return uid, nil
	}
	user, ok, err := s.session.User(ctx)
	if err == nil && ok && user.UID != "" {
		return user.UID, nil
	}
	return "", &common.Failure{
		Kind: common.KindValidation, Status: http.StatusBadRequest,
		Message: "uid is required", Fields: []string{"uid"},
	}
}

func toDocument(in entity.ReceiptInput) (map[string]any, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// createdReceipt decodes the create response, which may be the receipt, a
// {data: receipt} wrapper or just a message. Fields the backend did not
// echo are taken from the input.
func createdReceipt(body []byte, in entity.ReceiptInput) entity.Receipt {
	r := entity.Receipt{
		UID:                in.UID,
		Category:           in.Category,
		Price:              in.Price,
		Currency:           in.Currency,
		ProductName:        in.ProductName,
		StoreName:          in.StoreName,
		StoreLocation:      in.StoreLocation,
		Date:               in.Date,
		ValidUptoDate:      in.ValidUptoDate,
		RefundableUptoDate: in.RefundableUptoDate,
	}
	raw := body
	if v := gjson.GetBytes(body, "data"); v.IsObject() {
		raw = []byte(v.Raw)
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return r
	}
	var echoed entity.Receipt
	if err := json.Unmarshal(raw, &echoed); err != nil {
		return r
	}
	if echoed.ID != "" {
		r.ID = echoed.ID
	}
	if echoed.ImageReceiptID != "" {
		r.ImageReceiptID = echoed.ImageReceiptID
	}
	if echoed.Date != "" {
		r.Date = echoed.Date
	}
	r.AddedDate, r.UpdatedDate = echoed.AddedDate, echoed.UpdatedDate
	return r
}

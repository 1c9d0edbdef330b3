package services

import (
	"bytes"
	"context"
	"math"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/marketday/internal/app/models"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/filestorage"
)

const importFixture = "name,cost,quantity,image_url\n" +
	"Pencil set,3,20,\n" +
	"Sticker pack,abc,,https://img.example/sticker.png\n" +
	",5,5,\n" +
	"\"Lunch, with friends\",30,1,\n"

func TestCreateItemDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.items.CreateItem(ctx, CreateItemInput{Name: "  Yo-yo ", Cost: 2, Link: strPtr(" ")})
	require.NoError(t, err)
	assert.Equal(t, "Yo-yo", item.Name)
	assert.Equal(t, 10, item.Quantity)
	assert.Nil(t, item.Link)

	_, err = f.items.CreateItem(ctx, CreateItemInput{Name: "Free lunch", Cost: 0})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.items.CreateItem(ctx, CreateItemInput{Name: "", Cost: 1})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.items.CreateItem(ctx, CreateItemInput{Name: "Ghost", Cost: 1, Quantity: intPtr(-1)})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestUpdateAndDeleteItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.addStudent(t, "Ara", models.Grade4, 10)
	i := f.addItem(t, "Pen", 1, 5)

	_, err := f.ledger.Purchase(ctx, s.ID, i.ID)
	require.NoError(t, err)

	updated, err := f.items.UpdateItem(ctx, i.ID, UpdateItemInput{Quantity: intPtr(0), Link: strPtr("https://shop.example/pen")})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	require.NotNil(t, updated.Link)
	assert.Equal(t, "https://shop.example/pen", *updated.Link)

	_, err = f.items.UpdateItem(ctx, 999, UpdateItemInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	require.NoError(t, f.items.DeleteItem(ctx, i.ID))
	assert.Zero(t, f.purchaseCount(t))
	// deleting an item never refunds
	assert.Equal(t, 9, f.student(t, s.ID).TicketCount)

	assert.ErrorIs(t, f.items.DeleteItem(ctx, i.ID), apperrors.ErrResourceNotFound)
}

func TestImportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.items.ImportCSV(ctx, strings.NewReader("\ufeff"+importFixture))
	require.NoError(t, err)
	require.Len(t, result.Created, 3)
	assert.Equal(t, []SkippedRow{{Line: 4, Reason: "missing name"}}, result.Skipped)

	sticker := result.Created[1]
	assert.Equal(t, "Sticker pack", sticker.Name)
	assert.Equal(t, 1, sticker.Cost)
	assert.Equal(t, 10, sticker.Quantity)
	require.NotNil(t, sticker.ImageURL)
	assert.Equal(t, "https://img.example/sticker.png", *sticker.ImageURL)

	assert.Equal(t, "Lunch, with friends", result.Created[2].Name)
	assert.Equal(t, 30, result.Created[2].Cost)
}

func TestImportCSVWithoutHeader(t *testing.T) {
	f := newFixture(t)

	result, err := f.items.ImportCSV(context.Background(), strings.NewReader("Marble,2,0\nTop,4,3\n"))
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.Equal(t, "Marble", result.Created[0].Name)
	assert.Equal(t, 0, result.Created[0].Quantity)

	items, err := f.query.ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestImportCSVSkipsOutOfRangeNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.items.ImportCSV(ctx, strings.NewReader("name,cost,quantity\n"+
		"Castle,99999999999999999999,1\n"+
		"Marbles,3000000000,1\n"+
		"Beads,2,3000000000\n"+
		"Top,4,3\n"))
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "Top", result.Created[0].Name)
	assert.Equal(t, []SkippedRow{
		{Line: 2, Reason: "cost out of range"},
		{Line: 3, Reason: "cost out of range"},
		{Line: 4, Reason: "quantity out of range"},
	}, result.Skipped)

	result, err = f.items.ImportCSV(ctx, strings.NewReader("Castle,99999999999999999999,1\n"))
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Equal(t, []SkippedRow{{Line: 1, Reason: "cost out of range"}}, result.Skipped)
}

func TestCreateItemRejectsOutOfRangeNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	huge := math.MaxInt32 + 1

	_, err := f.items.CreateItem(ctx, CreateItemInput{Name: "Castle", Cost: huge})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.items.CreateItem(ctx, CreateItemInput{Name: "Castle", Cost: 2, Quantity: &huge})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	items, err := f.query.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestImportCSVRejectsOversizedFiles(t *testing.T) {
	f := newFixture(t)
	f.items.settings.MaxImportRows = 2

	_, err := f.items.ImportCSV(context.Background(), strings.NewReader("a,1,1\nb,1,1\nc,1,1\n"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	items, err := f.query.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.items.ImportCSV(ctx, strings.NewReader(importFixture))
	require.NoError(t, err)
	_, err = f.items.UpdateItem(ctx, result.Created[0].ID, UpdateItemInput{Link: strPtr("https://shop.example/pencil")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.items.ExportCSV(ctx, &buf))

	g := goldie.New(t)
	g.Assert(t, "items_export", buf.Bytes())

	// an export can be imported again
	reimported, err := newFixture(t).items.ImportCSV(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, reimported.Created, 3)
	pencil := reimported.Created[1]
	assert.Equal(t, "Pencil set", pencil.Name)
	assert.Equal(t, 3, pencil.Cost)
	assert.Equal(t, 20, pencil.Quantity)
	require.NotNil(t, pencil.Link)
	assert.Equal(t, "https://shop.example/pencil", *pencil.Link)
}

func TestImportCSVWithUnknownHeaderIsPositional(t *testing.T) {
	f := newFixture(t)

	result, err := f.items.ImportCSV(context.Background(), strings.NewReader("상품명,가격,수량\nRobot,12,1\n"))
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "Robot", result.Created[0].Name)
	assert.Equal(t, 12, result.Created[0].Cost)
	assert.Equal(t, 1, result.Created[0].Quantity)
}

func TestWriteTemplate(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	require.NoError(t, f.items.WriteTemplate(&buf))

	g := goldie.New(t)
	g.Assert(t, "items_template", buf.Bytes())
}

func newImageUpload(t *testing.T, filename string) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}

func TestAttachImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	storage, err := filestorage.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	f.items = NewItemService(f.store, storage, DefaultItemSettings(), zerolog.Nop()).(*itemServiceImpl)

	i := f.addItem(t, "Kite", 3, 2)

	first, err := f.items.AttachImage(ctx, i.ID, newImageUpload(t, "kite.png"))
	require.NoError(t, err)
	require.NotNil(t, first.ImageURL)
	assert.True(t, strings.HasPrefix(*first.ImageURL, "/uploads/items/"))
	firstURL := *first.ImageURL
	assert.FileExists(t, storage.GetFullPath(firstURL))

	second, err := f.items.AttachImage(ctx, i.ID, newImageUpload(t, "kite2.jpg"))
	require.NoError(t, err)
	assert.NotEqual(t, firstURL, *second.ImageURL)
	assert.NoFileExists(t, storage.GetFullPath(firstURL))

	_, err = f.items.AttachImage(ctx, i.ID, newImageUpload(t, "kite.exe"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.items.AttachImage(ctx, 999, newImageUpload(t, "kite.png"))
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestAttachImageWithoutStorage(t *testing.T) {
	f := newFixture(t)
	i := f.addItem(t, "Kite", 3, 2)

	_, err := f.items.AttachImage(context.Background(), i.ID, newImageUpload(t, "kite.png"))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

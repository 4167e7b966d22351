package admin

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/lube-storefront/internal/apiclient"
	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/model"
)

// fakeShop is an in-memory stand-in for the remote API.
type fakeShop struct {
	appointments []model.Appointment
	products     []model.Product
	nextID       int
	listErr      error

	appointmentLists int
	productLists     int
	statusUpdates    []model.Status
	deletes          []string
	creates          []apiclient.NewProduct
}

func (f *fakeShop) Appointments(context.Context) ([]model.Appointment, error) {
	f.appointmentLists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Appointment(nil), f.appointments...), nil
}

func (f *fakeShop) UpdateAppointmentStatus(_ context.Context, id string, st model.Status) error {
	f.statusUpdates = append(f.statusUpdates, st)
	for i := range f.appointments {
		if f.appointments[i].ID == id {
			f.appointments[i].Status = st
			return nil
		}
	}
	return &apiclient.RequestFailure{Status: 404, Message: "not found"}
}

func (f *fakeShop) DeleteAppointment(_ context.Context, id string) error {
	f.deletes = append(f.deletes, "appointment:"+id)
	out := f.appointments[:0]
	for _, a := range f.appointments {
		if a.ID != id {
			out = append(out, a)
		}
	}
	f.appointments = out
	return nil
}

func (f *fakeShop) AdminProducts(context.Context) ([]model.Product, error) {
	f.productLists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Product(nil), f.products...), nil
}

func (f *fakeShop) CreateProduct(_ context.Context, p apiclient.NewProduct) (model.Product, error) {
	f.creates = append(f.creates, p)
	f.nextID++
	created := model.Product{
		ID: "p" + strconv.Itoa(f.nextID), Brand: p.Brand, Grade: p.Grade,
		Price: p.Price, Stock: p.Stock, Description: p.Description,
	}
	f.products = append(f.products, created)
	return created, nil
}

func (f *fakeShop) UpdateProduct(_ context.Context, id string, patch apiclient.ProductPatch) error {
	for i := range f.products {
		if f.products[i].ID == id {
			if patch.Price != nil {
				f.products[i].Price = *patch.Price
			}
			if patch.Stock != nil {
				f.products[i].Stock = *patch.Stock
			}
			return nil
		}
	}
	return &apiclient.RequestFailure{Status: 404}
}

func (f *fakeShop) DeleteProduct(_ context.Context, id string) error {
	f.deletes = append(f.deletes, "product:"+id)
	return nil
}

type pendingConfirm struct {
	msg string
	run func(ctx context.Context, ok bool)
}

type recorder struct {
	successes []string
	errors    []string
	confirms  []pendingConfirm
}

func (r *recorder) T(key string, _ ...any) string { return key }
func (r *recorder) Success(m string) string       { r.successes = append(r.successes, m); return "" }
func (r *recorder) Error(m string) string         { r.errors = append(r.errors, m); return "" }
func (r *recorder) Confirm(m string, fn func(context.Context, bool)) string {
	r.confirms = append(r.confirms, pendingConfirm{msg: m, run: fn})
	return strconv.Itoa(len(r.confirms))
}

func TestStatusChangePersistsAndRefreshes(t *testing.T) {
	shop := &fakeShop{appointments: []model.Appointment{{ID: "a1", Time: "10:00", Status: model.StatusPending}}}
	n := &recorder{}
	d := New(shop, n, nil)
	ctx := context.Background()

	if err := d.Load(ctx, TabAppointments); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := d.ChangeStatus(ctx, "a1", "Confirmed"); err != nil {
		t.Fatalf("change status: %v", err)
	}
	if len(shop.statusUpdates) != 1 || shop.statusUpdates[0] != model.StatusConfirmed {
		t.Fatalf("updates = %v", shop.statusUpdates)
	}
	if shop.appointmentLists != 2 {
		t.Fatalf("appointment list fetched %d times, want 2", shop.appointmentLists)
	}
	if shop.productLists != 0 {
		t.Fatal("status change re-fetched products")
	}
	if d.Appointments[0].Status != model.StatusConfirmed {
		t.Fatalf("list shows %s", d.Appointments[0].Status)
	}
	if len(n.successes) != 1 || n.successes[0] != i18n.MsgStatusUpdated {
		t.Fatalf("successes = %v", n.successes)
	}
	if d.Loading {
		t.Fatal("loading flag left set")
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	shop := &fakeShop{}
	d := New(shop, &recorder{}, nil)
	if err := d.ChangeStatus(context.Background(), "a1", "Cancelled"); err == nil {
		t.Fatal("expected validation failure")
	}
	if len(shop.statusUpdates) != 0 {
		t.Fatal("invalid status sent")
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	shop := &fakeShop{appointments: []model.Appointment{{ID: "a1"}, {ID: "a2"}}}
	n := &recorder{}
	d := New(shop, n, nil)
	ctx := context.Background()

	d.RequestDeleteAppointment("a1")
	d.RequestDeleteProduct("p1")
	if len(shop.deletes) != 0 {
		t.Fatalf("deleted before confirmation: %v", shop.deletes)
	}
	if len(n.confirms) != 2 {
		t.Fatalf("confirms = %d", len(n.confirms))
	}

	n.confirms[0].run(ctx, false)
	n.confirms[1].run(ctx, false)
	if len(shop.deletes) != 0 {
		t.Fatalf("cancel deleted: %v", shop.deletes)
	}

	d.RequestDeleteAppointment("a1")
	n.confirms[2].run(ctx, true)
	if len(shop.deletes) != 1 || shop.deletes[0] != "appointment:a1" {
		t.Fatalf("deletes = %v", shop.deletes)
	}
	if shop.appointmentLists != 1 || len(d.Appointments) != 1 || d.Appointments[0].ID != "a2" {
		t.Fatalf("list not refreshed after delete: %+v", d.Appointments)
	}
}

func TestProductRoundTrip(t *testing.T) {
	shop := &fakeShop{}
	n := &recorder{}
	d := New(shop, n, nil)
	ctx := context.Background()

	err := d.CreateProduct(ctx, ProductForm{Brand: "Castrol", Grade: "5W-30", Price: "100", Stock: "5", Description: "Edge"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(d.Products) != 1 {
		t.Fatalf("products after create = %+v", d.Products)
	}
	p := d.Products[0]
	if p.Brand != "Castrol" || p.Grade != "5W-30" || !p.Price.Equal(decimal.NewFromInt(100)) || p.Stock != 5 {
		t.Fatalf("listed product = %+v", p)
	}

	if err := d.UpdateProduct(ctx, p.ID, "120", ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := d.Products[0]; !got.Price.Equal(decimal.NewFromInt(120)) || got.Stock != 5 {
		t.Fatalf("after update = %+v", got)
	}
	if shop.productLists != 2 || shop.appointmentLists != 0 {
		t.Fatalf("lists: products=%d appointments=%d", shop.productLists, shop.appointmentLists)
	}
}

func TestProductValidation(t *testing.T) {
	tests := []struct {
		name string
		form ProductForm
	}{
		{"unknown brand", ProductForm{Brand: "Acme", Grade: "5W-30", Price: "10", Stock: "1"}},
		{"unknown grade", ProductForm{Brand: "Elf", Grade: "7W-99", Price: "10", Stock: "1"}},
		{"negative price", ProductForm{Brand: "Elf", Grade: "5W-30", Price: "-1", Stock: "1"}},
		{"negative stock", ProductForm{Brand: "Elf", Grade: "5W-30", Price: "1", Stock: "-2"}},
		{"price not a number", ProductForm{Brand: "Elf", Grade: "5W-30", Price: "ten", Stock: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shop := &fakeShop{}
			n := &recorder{}
			err := New(shop, n, nil).CreateProduct(context.Background(), tt.form, nil)
			var vf *apiclient.ValidationFailure
			if !errors.As(err, &vf) {
				t.Fatalf("err = %v", err)
			}
			if len(shop.creates) != 0 {
				t.Fatal("invalid product sent")
			}
			if len(n.errors) != 1 {
				t.Fatalf("errors = %v", n.errors)
			}
		})
	}
}

func TestUpdateRejectsNegativeStock(t *testing.T) {
	shop := &fakeShop{products: []model.Product{{ID: "p1"}}}
	if err := New(shop, &recorder{}, nil).UpdateProduct(context.Background(), "p1", "", "-3"); err == nil {
		t.Fatal("expected failure")
	}
}

func TestExpiredSessionAsksForLogin(t *testing.T) {
	shop := &fakeShop{listErr: apiclient.ErrSessionExpired}
	n := &recorder{}
	err := New(shop, n, nil).Load(context.Background(), TabProducts)
	if !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("err = %v", err)
	}
	if len(n.errors) != 1 || n.errors[0] != i18n.MsgSessionExpired {
		t.Fatalf("errors = %v", n.errors)
	}
}

func TestLoadFailureShowsServerMessage(t *testing.T) {
	shop := &fakeShop{listErr: &apiclient.RequestFailure{Status: 500, Message: "db down"}}
	n := &recorder{}
	if err := New(shop, n, nil).Load(context.Background(), TabAppointments); err == nil {
		t.Fatal("expected error")
	}
	if len(n.errors) != 1 || n.errors[0] != "db down" {
		t.Fatalf("errors = %v", n.errors)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDownscale(t *testing.T) {
	big := apiclient.Upload{Filename: "oil.png", ContentType: "image/png", Data: pngBytes(t, 1600, 800)}
	out, err := Downscale(big, MaxImageSide)
	if err != nil {
		t.Fatalf("downscale: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if format != "png" || cfg.Width != 800 || cfg.Height != 400 || out.ContentType != "image/png" {
		t.Fatalf("result %s %dx%d %s", format, cfg.Width, cfg.Height, out.ContentType)
	}

	small := apiclient.Upload{Filename: "s.png", Data: pngBytes(t, 100, 50)}
	same, err := Downscale(small, MaxImageSide)
	if err != nil || !bytes.Equal(same.Data, small.Data) || same.ContentType != "image/png" {
		t.Fatalf("small image changed: err=%v ct=%q", err, same.ContentType)
	}

	if _, err := Downscale(apiclient.Upload{Data: []byte("not an image")}, MaxImageSide); err == nil {
		t.Fatal("garbage accepted")
	}
}

func TestDownscaleChecksDimensionsBeforeDecoding(t *testing.T) {
	data := pngBytes(t, 4, 4)
	// Rewrite the IHDR size to 60000x60000 and fix its checksum.
	binary.BigEndian.PutUint32(data[16:20], 60000)
	binary.BigEndian.PutUint32(data[20:24], 60000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

	_, err := Downscale(apiclient.Upload{Filename: "bomb.png", Data: data}, MaxImageSide)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("err = %v, want ErrImageTooLarge", err)
	}
}

func TestCreateProductRejectsBrokenImage(t *testing.T) {
	shop := &fakeShop{}
	err := New(shop, &recorder{}, nil).CreateProduct(context.Background(),
		ProductForm{Brand: "Shell", Grade: "10W-40", Price: "50", Stock: "2"},
		&apiclient.Upload{Filename: "x.png", Data: []byte("nope")})
	if err == nil || len(shop.creates) != 0 {
		t.Fatalf("err=%v creates=%d", err, len(shop.creates))
	}
}

func TestWriteAppointmentsXLSX(t *testing.T) {
	day, _ := model.ParseDate("2026-03-03")
	as := []model.Appointment{
		{ID: "a1", Date: day, Time: "10:00", Service: "Oil Change", Status: model.StatusPending, IsGuest: true,
			Guest: &model.GuestContact{Name: "Ada", Email: "ada@example.com", Phone: "555"}},
		{ID: "a2", Date: day, Time: "11:00", Service: "Detailed Care", Status: model.StatusConfirmed, Name: "Bo"},
	}
	var buf bytes.Buffer
	if err := WriteAppointmentsXLSX(&buf, as); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "Date" || rows[1][3] != "Ada" || rows[1][6] != "yes" || rows[2][3] != "Bo" || rows[2][7] != "Confirmed" {
		t.Fatalf("rows = %v", rows)
	}
}

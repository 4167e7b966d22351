// Package i18n holds the user-facing messages of the storefront and their
// Turkish translations. English text doubles as the message key.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. Keep them in sync with the tr table below.
const (
	MsgConnectivity        = "Cannot reach the server. Please check your connection."
	MsgSessionExpired      = "Your session has expired. Please sign in again."
	MsgGenericFailure      = "Something went wrong. Please try again."
	MsgLoginRequired       = "Please sign in to continue."
	MsgLoginSuccess        = "Signed in successfully."
	MsgLoginFailed         = "Sign in failed."
	MsgLogout              = "You have been signed out."
	MsgRegisterSuccess     = "Registration complete. You can now sign in."
	MsgRegisterFailed      = "Registration failed."
	MsgPasswordMismatch    = "Passwords do not match."
	MsgAccountDeleteAsk    = "Delete your account? This cannot be undone."
	MsgAccountDeleted      = "Your account has been deleted."
	MsgAccountDeleteFailed = "Could not delete your account."
	MsgProductsLoadFailed  = "Could not load products."
	MsgBookingSuccess      = "Your appointment has been created."
	MsgBookingFailed       = "Could not create the appointment."
	MsgGuestInfoRequired   = "Please enter your name, email and phone."
	MsgBookingIncomplete   = "Please choose a date, a time and a service."
	MsgDateUnavailable     = "That date is not available."
	MsgSlotBooked          = "That time is already booked."
	MsgSubmitInProgress    = "Your request is already being sent."
	MsgAppointmentsFailed  = "Could not load appointments."
	MsgStatusUpdated       = "Appointment status updated."
	MsgStatusFailed        = "Could not update the appointment status."
	MsgAppointmentDelAsk   = "Delete this appointment?"
	MsgAppointmentDeleted  = "Appointment deleted."
	MsgAppointmentDelFail  = "Could not delete the appointment."
	MsgProductCreated      = "Product added."
	MsgProductCreateFailed = "Could not add the product."
	MsgProductUpdated      = "Product updated."
	MsgProductUpdateFailed = "Could not update the product."
	MsgProductDeleteAsk    = "Delete this product?"
	MsgProductDeleted      = "Product deleted."
	MsgProductDeleteFailed = "Could not delete the product."
	MsgProductInvalid      = "Please check the product fields."
	MsgExportFailed        = "Could not export appointments."
	MsgTooManyRequests     = "Too many requests. Please wait a moment."
	MsgConfirm             = "Confirm"
	MsgCancel              = "Cancel"
)

var tr = map[string]string{
	MsgConnectivity:        "Sunucuya ulaşılamıyor. Lütfen bağlantınızı kontrol edin.",
	MsgSessionExpired:      "Oturumunuzun süresi doldu. Lütfen tekrar giriş yapın.",
	MsgGenericFailure:      "Bir hata oluştu. Lütfen tekrar deneyin.",
	MsgLoginRequired:       "Devam etmek için lütfen giriş yapın.",
	MsgLoginSuccess:        "Giriş başarılı.",
	MsgLoginFailed:         "Giriş başarısız.",
	MsgLogout:              "Çıkış yapıldı.",
	MsgRegisterSuccess:     "Kayıt başarılı. Şimdi giriş yapabilirsiniz.",
	MsgRegisterFailed:      "Kayıt başarısız.",
	MsgPasswordMismatch:    "Şifreler eşleşmiyor.",
	MsgAccountDeleteAsk:    "Hesabınızı silmek istiyor musunuz? Bu işlem geri alınamaz.",
	MsgAccountDeleted:      "Hesabınız silindi.",
	MsgAccountDeleteFailed: "Hesap silinemedi.",
	MsgProductsLoadFailed:  "Ürünler yüklenemedi.",
	MsgBookingSuccess:      "Randevunuz başarıyla oluşturuldu",
	MsgBookingFailed:       "Randevu oluşturulurken bir hata oluştu",
	MsgGuestInfoRequired:   "Lütfen adınızı, e-posta adresinizi ve telefonunuzu girin.",
	MsgBookingIncomplete:   "Lütfen tarih, saat ve hizmet seçin.",
	MsgDateUnavailable:     "Bu tarih uygun değil.",
	MsgSlotBooked:          "Bu saat dolu.",
	MsgSubmitInProgress:    "İsteğiniz zaten gönderiliyor.",
	MsgAppointmentsFailed:  "Randevular yüklenemedi.",
	MsgStatusUpdated:       "Randevu durumu güncellendi.",
	MsgStatusFailed:        "Randevu durumu güncellenemedi.",
	MsgAppointmentDelAsk:   "Bu randevuyu silmek istiyor musunuz?",
	MsgAppointmentDeleted:  "Randevu silindi.",
	MsgAppointmentDelFail:  "Randevu silinemedi.",
	MsgProductCreated:      "Ürün eklendi.",
	MsgProductCreateFailed: "Ürün eklenemedi.",
	MsgProductUpdated:      "Ürün güncellendi.",
	MsgProductUpdateFailed: "Ürün güncellenemedi.",
	MsgProductDeleteAsk:    "Bu ürünü silmek istiyor musunuz?",
	MsgProductDeleted:      "Ürün silindi.",
	MsgProductDeleteFailed: "Ürün silinemedi.",
	MsgProductInvalid:      "Lütfen ürün alanlarını kontrol edin.",
	MsgExportFailed:        "Randevular dışa aktarılamadı.",
	MsgTooManyRequests:     "Çok fazla istek. Lütfen biraz bekleyin.",
	MsgConfirm:             "Onayla",
	MsgCancel:              "İptal",
}

var supported = []language.Tag{language.English, language.Turkish}

var matcher = language.NewMatcher(supported)

func init() {
	for key, msg := range tr {
		if err := message.SetString(language.Turkish, key, msg); err != nil {
			panic(err)
		}
	}
}

// Match picks the best supported language from the given preferences, which
// may be a cookie value or an Accept-Language header. fallback is used when
// nothing matches.
func Match(fallback string, prefs ...string) language.Tag {
	for _, p := range prefs {
		if p == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil || len(tags) == 0 {
			continue
		}
		tag, _, conf := matcher.Match(tags...)
		if conf != language.No {
			return baseOf(tag)
		}
	}
	if t, err := language.Parse(fallback); err == nil {
		return baseOf(t)
	}
	return language.English
}

func baseOf(t language.Tag) language.Tag {
	b, _ := t.Base()
	return language.Make(b.String())
}

// Printer returns a message printer for tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

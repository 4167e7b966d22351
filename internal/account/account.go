// Package account covers sign-in, sign-up and the signed-in visitor's own
// pages: profile, own appointments and account removal.
package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/apiclient"
	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/model"
	"github.com/iliyamo/lube-storefront/internal/session"
)

// ErrLoginRequired means the page needs a signed-in visitor.
var ErrLoginRequired = errors.New("account: login required")

type API interface {
	Login(ctx context.Context, email, password string) (apiclient.LoginResult, error)
	Register(ctx context.Context, r apiclient.Registration) error
	DeleteAccount(ctx context.Context) error
	UserAppointments(ctx context.Context) ([]model.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

// Sessions is the part of session.Provider that account writes through.
type Sessions interface {
	Write(ctx context.Context, sid string, s session.Session) error
	Clear(ctx context.Context, sid, reason string) error
}

type Notifier interface {
	T(key string, args ...any) string
	Info(msg string) string
	Success(msg string) string
	Error(msg string) string
	Confirm(msg string, onDecide func(ctx context.Context, confirmed bool)) string
}

type Service struct {
	api      API
	sessions Sessions
	notify   Notifier
	log      *zap.Logger
}

func New(api API, sessions Sessions, n Notifier, log *zap.Logger) *Service {
	if api == nil || sessions == nil || n == nil {
		panic("account: nil dependency")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, sessions: sessions, notify: n, log: log}
}

// Login signs the visitor in under sid and returns where to go next:
// /admin for administrators, / for everyone else.
func (s *Service) Login(ctx context.Context, sid, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.notify.Error(s.notify.T(i18n.MsgLoginFailed))
		return "", &apiclient.ValidationFailure{Field: "email", Reason: i18n.MsgLoginFailed}
	}
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.log.Info("login failed", zap.String("email", email), zap.Error(err))
		s.notify.Error(apiclient.Message(err, s.notify.T(i18n.MsgConnectivity), s.notify.T(i18n.MsgLoginFailed)))
		return "", err
	}
	role := res.User.Role
	if role == "" {
		role = model.RoleUser
	}
	sess := session.Session{Token: res.Token, Role: role, Profile: res.User}
	if err := s.sessions.Write(ctx, sid, sess); err != nil {
		s.log.Error("store session", zap.String("sid", sid), zap.Error(err))
		s.notify.Error(s.notify.T(i18n.MsgLoginFailed))
		return "", err
	}
	if v := session.FromContext(ctx); v != nil && v.ID == sid {
		v.Session, v.Valid = sess, true
	}
	s.notify.Success(s.notify.T(i18n.MsgLoginSuccess))
	if sess.IsAdmin() {
		return "/admin", nil
	}
	return "/", nil
}

// RegisterForm is the raw sign-up form.
type RegisterForm struct {
	Name     string `form:"name"`
	Email    string `form:"email"`
	Phone    string `form:"phone"`
	Password string `form:"password"`
	Confirm  string `form:"confirmPassword"`
}

func (f RegisterForm) validate() *apiclient.ValidationFailure {
	if f.Password != f.Confirm {
		return &apiclient.ValidationFailure{Field: "confirmPassword", Reason: i18n.MsgPasswordMismatch}
	}
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Phone) == "" || f.Password == "" {
		return &apiclient.ValidationFailure{Field: "name", Reason: i18n.MsgRegisterFailed}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(f.Email)); err != nil {
		return &apiclient.ValidationFailure{Field: "email", Reason: i18n.MsgRegisterFailed}
	}
	return nil
}

// Register creates an account. Nothing is sent when the form is invalid.
func (s *Service) Register(ctx context.Context, f RegisterForm) error {
	if vf := f.validate(); vf != nil {
		s.notify.Error(s.notify.T(vf.Reason))
		return vf
	}
	err := s.api.Register(ctx, apiclient.Registration{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		Password: f.Password,
	})
	if err != nil {
		s.notify.Error(apiclient.Message(err, s.notify.T(i18n.MsgConnectivity), s.notify.T(i18n.MsgRegisterFailed)))
		return err
	}
	s.notify.Success(s.notify.T(i18n.MsgRegisterSuccess))
	return nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if err := s.sessions.Clear(ctx, sid, session.ReasonLogout); err != nil {
		return err
	}
	if v := session.FromContext(ctx); v != nil && v.ID == sid {
		v.Session, v.Valid = session.Session{}, false
	}
	s.notify.Info(s.notify.T(i18n.MsgLogout))
	return nil
}

// Profile returns the snapshot stored at login.
func Profile(ctx context.Context) (model.Profile, error) {
	v := session.FromContext(ctx)
	if v == nil || !v.Valid {
		return model.Profile{}, ErrLoginRequired
	}
	return v.Session.Profile, nil
}

// MyAppointments lists the signed-in visitor's appointments.
func (s *Service) MyAppointments(ctx context.Context) ([]model.Appointment, error) {
	as, err := s.api.UserAppointments(ctx)
	if err != nil {
		return nil, s.fail(err, i18n.MsgAppointmentsFailed)
	}
	return as, nil
}

func (s *Service) fail(err error, fallback string) error {
	s.log.Warn("account operation failed", zap.Error(err))
	if apiclient.IsAuthFailure(err) {
		if errors.Is(err, apiclient.ErrSessionExpired) {
			s.notify.Error(s.notify.T(i18n.MsgSessionExpired))
		}
		return ErrLoginRequired
	}
	s.notify.Error(apiclient.Message(err, s.notify.T(i18n.MsgConnectivity), s.notify.T(fallback)))
	return err
}

// RequestDeleteAppointment deletes one of the visitor's appointments once
// confirmed.
func (s *Service) RequestDeleteAppointment(id string) string {
	return s.notify.Confirm(s.notify.T(i18n.MsgAppointmentDelAsk), func(ctx context.Context, ok bool) {
		if !ok {
			return
		}
		if err := s.api.DeleteAppointment(ctx, id); err != nil {
			_ = s.fail(err, i18n.MsgAppointmentDelFail)
			return
		}
		s.notify.Success(s.notify.T(i18n.MsgAppointmentDeleted))
	})
}

// RequestDeleteAccount removes the account once confirmed and then signs
// the visitor out of sid.
func (s *Service) RequestDeleteAccount(sid string) string {
	return s.notify.Confirm(s.notify.T(i18n.MsgAccountDeleteAsk), func(ctx context.Context, ok bool) {
		if !ok {
			return
		}
		if err := s.api.DeleteAccount(ctx); err != nil {
			_ = s.fail(err, i18n.MsgAccountDeleteFailed)
			return
		}
		if err := s.sessions.Clear(ctx, sid, session.ReasonDeleted); err != nil {
			s.log.Error("clear session after account delete", zap.String("sid", sid), zap.Error(err))
		}
		if v := session.FromContext(ctx); v != nil && v.ID == sid {
			v.Session, v.Valid = session.Session{}, false
		}
		s.notify.Success(s.notify.T(i18n.MsgAccountDeleted))
	})
}

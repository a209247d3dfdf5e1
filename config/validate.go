package config

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	auth "github.com/goliatone/go-token-auth"
)

func (c BaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Auth),
		validation.Field(&c.Persistence),
		validation.Field(&c.Revocation),
		validation.Field(&c.Redis, validation.By(func(value any) error {
			r, _ := value.(Redis)
			if c.Revocation.Backend == RevocationBackendRedis && r.Addr == "" {
				return errors.New("addr is required by the redis revocation backend")
			}
			return nil
		})),
		validation.Field(&c.Log),
		validation.Field(&c.Phone),
	)
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.ShutdownTimeoutExpression, validation.Required, validation.By(duration)),
	)
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(auth.MinSigningKeyLength, 0)),
		validation.Field(&a.TokenTTLMs, validation.Required, validation.Min(int64(time.Second/time.Millisecond))),
		validation.Field(&a.TokenLookup, validation.Required),
		validation.Field(&a.AuthScheme, validation.Required),
		validation.Field(&a.BcryptCost, validation.Min(0)),
	)
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&p.DSN, validation.Required),
		validation.Field(&p.PingTimeoutExpression, validation.Required, validation.By(duration)),
		validation.Field(&p.MaxOpenConns, validation.Min(0)),
	)
}

func (r Revocation) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Backend, validation.Required, validation.In(
			RevocationBackendSQL,
			RevocationBackendRedis,
			RevocationBackendMemory,
		)),
		validation.Field(&r.CacheSize, validation.Min(0)),
	)
}

func (l Log) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func (p Phone) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Region, validation.Length(2, 2)),
	)
}

func duration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return errors.New("must be a valid duration")
	}
	return nil
}

package config

type TokenConf struct {
	AccessTokenExpiryHour  int
	RefreshTokenExpiryHour int
	AccessTokenSecret      string
	RefreshTokenSecret     string
}

func NewTokenConf() *TokenConf {
	c := GetConfig()
	conf := &TokenConf{
		AccessTokenExpiryHour:  c.Auth.AccessTokenExpiryHour,
		RefreshTokenExpiryHour: c.Auth.RefreshTokenExpiryHour,
		AccessTokenSecret:      c.Auth.AccessTokenSecret,
		RefreshTokenSecret:     c.Auth.RefreshTokenSecret,
	}
	if conf.AccessTokenExpiryHour == 0 {
		conf.AccessTokenExpiryHour = 1
	}
	if conf.RefreshTokenExpiryHour == 0 {
		conf.RefreshTokenExpiryHour = 168
	}
	return conf
}

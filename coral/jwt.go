package coral

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

// metadata keys attached to the auth envelope at handshake
const (
	MetadataBearer     = "bearer"
	MetadataClientId   = "client_id"
	MetadataInstanceId = "instance_id"
	MetadataAppVersion = "app_version"
)

// ClientAuth is the credential attached once at connect time.
type ClientAuth struct {
	ByJwt      string
	InstanceId Id
	AppVersion string
}

func (self *ClientAuth) ClientId() (Id, error) {
	byJwt, err := ParseByJwtUnverified(self.ByJwt)
	if err != nil {
		return Id{}, err
	}
	return byJwt.ClientId, nil
}

type ByJwt struct {
	UserId     Id
	TenantName string
	TenantId   Id
	ClientId   Id
}

// ParseByJwtUnverified peeks at the claims client-side. Verification is the
// service's job at handshake; the client only needs the ids for metadata.
func ParseByJwtUnverified(jwt string) (*ByJwt, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(jwt, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(gojwt.MapClaims)

	byJwt := &ByJwt{}

	if userIdStr, ok := claims["user_id"]; ok {
		if userId, err := ParseId(userIdStr.(string)); err == nil {
			byJwt.UserId = userId
		}
	}
	if tenantName, ok := claims["tenant_name"]; ok {
		byJwt.TenantName = tenantName.(string)
	}
	if tenantIdStr, ok := claims["tenant_id"]; ok {
		if tenantId, err := ParseId(tenantIdStr.(string)); err == nil {
			byJwt.TenantId = tenantId
		}
	}
	if clientIdStr, ok := claims["client_id"]; ok {
		if clientId, err := ParseId(clientIdStr.(string)); err == nil {
			byJwt.ClientId = clientId
		}
	}

	return byJwt, nil
}

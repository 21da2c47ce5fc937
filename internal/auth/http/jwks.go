package http

import (
	"net/http"

	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// JWKSHandler exposes the public signing keys so other services can verify
// access tokens offline.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set (Ed25519, EdDSA) used to verify access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set := keys.PublicJWKS()
		resp := authsdk.JWKSResponse{Keys: make([]authsdk.JWK, 0, len(set.Keys))}
		for _, k := range set.Keys {
			resp.Keys = append(resp.Keys, authsdk.JWK{
				Kty: k.Kty,
				Crv: k.Crv,
				X:   k.X,
				Kid: k.Kid,
				Use: k.Use,
				Alg: k.Alg,
			})
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

package middleware

import (
	"reflect"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestUserFromClaims(t *testing.T) {
	tests := []struct {
		name    string
		claims  jwt.MapClaims
		want    *AppUser
		wantErr bool
	}{
		{
			name:   "StringID",
			claims: jwt.MapClaims{"id": "42", "permissions": []any{"run.view"}},
			want:   &AppUser{UserID: 42, Role: "user", Permissions: []string{"run.view"}},
		},
		{
			name:   "AdminGetsAll",
			claims: jwt.MapClaims{"id": float64(7), "role": "admin"},
			want:   &AppUser{UserID: 7, Role: "admin", Permissions: allPermissions},
		},
		{name: "BadID", claims: jwt.MapClaims{"id": "x"}, wantErr: true},
		{name: "MissingID", claims: jwt.MapClaims{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := userFromClaims(tt.claims)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	user := &AppUser{Permissions: []string{"run.view"}}
	if !HasPermission(user, "run.view") || HasPermission(user, "run.create") || HasPermission(nil, "run.view") {
		t.Fatal("unexpected permission result")
	}
}

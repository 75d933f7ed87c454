package tests

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestSignupAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 5; i++ {
		email := fmt.Sprintf("user%d@mail.com", i)
		password := fmt.Sprintf("user%d_password", i)

		client := env.newClient()
		login, err := client.signup(email, password)
		if err != nil {
			t.Fatal(err)
		}

		_, err = client.signup(email, password)
		if !hasStatus(err, http.StatusConflict) {
			t.Fatal("duplicate signup should fail")
		}

		err = client.login(loginInfo{Email: "user@mail.com", Password: password})
		if err == nil {
			t.Fatal("login should fail with wrong email")
		}

		err = client.login(loginInfo{Email: email, Password: "wrong_password"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatal("login should fail with wrong password")
		}

		err = client.login(login)
		if err != nil {
			t.Fatal(err)
		}

		info, err := client.userInfo()
		if err != nil {
			t.Fatal(err)
		}

		if info.Email != email || info.Id.String() != client.userId || info.Admin {
			t.Fatalf("invalid info %v", info)
		}
	}
}

func TestSignupPasswordTooShort(t *testing.T) {
	env := setupTestEnv(t)

	client := env.newClient()
	_, err := client.signup("abc@mail.com", "short")
	if !hasStatus(err, http.StatusUnprocessableEntity) {
		t.Fatalf("short password should be rejected: %v", err)
	}

	err = client.login(loginInfo{Email: "abc@mail.com", Password: "short"})
	if !strings.Contains(err.Error(), "no user found for given email") {
		t.Fatalf("no login should be created: %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	info, err := admin.userInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Email != adminEmail || !info.Admin {
		t.Fatalf("invalid admin info %v", info)
	}
}

func TestInfoRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	client := env.newClient()
	_, err := client.userInfo()
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatal("expected unauthorized error")
	}
}

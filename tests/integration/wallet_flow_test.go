package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestWalletFlow_FundsTransfersRewards(t *testing.T) {
	app := setupApp(t)
	tokenA, _ := app.registerUser(t, "grace@test.com", "password123")
	tokenB, userB := app.registerUser(t, "heidi@test.com", "password123")

	// Funding accrues 1% reward points
	app.addFunds(t, tokenA, "200.00")

	rec := app.request("GET", "/api/v1/wallet/rewards", "", tokenA)
	if rec.Code != http.StatusOK {
		t.Fatalf("get rewards failed: %d %s", rec.Code, rec.Body.String())
	}
	rewards := parseJSON(t, rec)["rewards"].(map[string]interface{})
	if rewards["points"].(float64) != 200 {
		t.Errorf("expected 200 points, got %v", rewards["points"])
	}
	if rewards["tier"] != "bronze" {
		t.Errorf("expected bronze tier, got %v", rewards["tier"])
	}
	if rewards["redeem_value"] != "2.00" {
		t.Errorf("expected redeem value 2.00, got %v", rewards["redeem_value"])
	}

	// Peer transfer moves funds and creates the recipient wallet on demand
	rec = app.request("POST", "/api/v1/wallet/transfers",
		fmt.Sprintf(`{"to_user_id":%q,"amount":"50.00","description":"Lunch"}`, userB), tokenA)
	if rec.Code != http.StatusCreated {
		t.Fatalf("transfer failed: %d %s", rec.Code, rec.Body.String())
	}
	if got := app.walletBalance(t, tokenA); got != "150.00" {
		t.Errorf("expected sender balance 150.00, got %s", got)
	}
	if got := app.walletBalance(t, tokenB); got != "50.00" {
		t.Errorf("expected recipient balance 50.00, got %s", got)
	}

	// Overdrawing is rejected and changes nothing
	rec = app.request("POST", "/api/v1/wallet/transfers",
		fmt.Sprintf(`{"to_user_id":%q,"amount":"500.00"}`, userB), tokenA)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_FUNDS")
	if got := app.walletBalance(t, tokenA); got != "150.00" {
		t.Errorf("expected balance unchanged at 150.00, got %s", got)
	}

	// Redeeming 100 points credits 1.00
	rec = app.request("POST", "/api/v1/wallet/rewards/redeem", `{"points":100}`, tokenA)
	if rec.Code != http.StatusCreated {
		t.Fatalf("redeem failed: %d %s", rec.Code, rec.Body.String())
	}
	if got := app.walletBalance(t, tokenA); got != "151.00" {
		t.Errorf("expected balance 151.00 after redeem, got %s", got)
	}

	rec = app.request("GET", "/api/v1/wallet/rewards", "", tokenA)
	rewards = parseJSON(t, rec)["rewards"].(map[string]interface{})
	if rewards["points"].(float64) != 150 {
		t.Errorf("expected 150 points after redeem and transfer accrual, got %v", rewards["points"])
	}
	if rewards["lifetime_points"].(float64) != 250 {
		t.Errorf("expected lifetime points 250, got %v", rewards["lifetime_points"])
	}

	// The transaction log holds every mutation with balance snapshots
	rec = app.request("GET", "/api/v1/wallet/transactions", "", tokenA)
	if rec.Code != http.StatusOK {
		t.Fatalf("get transactions failed: %d %s", rec.Code, rec.Body.String())
	}
	page := parseJSON(t, rec)
	entries := page["data"].([]interface{})
	if len(entries) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(entries))
	}
	foundRedeem := false
	for _, raw := range entries {
		entry := raw.(map[string]interface{})
		if entry["type"] == "reward_redeem" {
			foundRedeem = true
			if entry["balance_after"].(float64) != 15100 {
				t.Errorf("expected redeem balance_after 15100, got %v", entry["balance_after"])
			}
		}
	}
	if !foundRedeem {
		t.Error("expected a reward_redeem entry in the transaction log")
	}
}

func TestWalletFlow_RedeemRequiresPoints(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "ivan@test.com", "password123")

	rec := app.request("POST", "/api/v1/wallet/rewards/redeem", `{"points":50}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_POINTS")
}

package main

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
	"time"
)

func TestParsePartnerPayload(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		raw     string
		id      string
		at      time.Time
		invalid bool
	}{
		{raw: "KT-PARTNER|42|1714564800000", id: "42", at: time.UnixMilli(1714564800000)},
		{raw: "  KT-PARTNER|42|1714564800000\n", id: "42", at: time.UnixMilli(1714564800000)},
		{raw: "KT-PARTNER|42|soon", id: "42", at: now},
		{raw: "KT-PARTNER|42|", id: "42", at: now},
		{raw: "KT-PARTNER|42|0", id: "42", at: now},
		{raw: "KT-PARTNER|42|1|extra", id: "42", at: time.UnixMilli(1)},
		{raw: "KT-PARTNER|42", invalid: true},
		{raw: "OTHER|42|1", invalid: true},
		{raw: "", invalid: true},
	}
	for _, c := range cases {
		scan, err := ParsePartnerPayload(c.raw, now)
		if c.invalid {
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("%q: expected ErrInvalidPayload, got %v", c.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", c.raw, err)
			continue
		}
		if scan.PartnerID != c.id || !scan.At.Equal(c.at) {
			t.Errorf("%q: expected %s at %v, got %+v", c.raw, c.id, c.at, scan)
		}
	}
}

func TestPartnerPayloadRoundTrip(t *testing.T) {
	at := time.UnixMilli(1714564800123)
	scan, err := ParsePartnerPayload(PartnerPayload(7, at), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if scan.PartnerID != "7" || !scan.At.Equal(at) {
		t.Errorf("unexpected scan %+v", scan)
	}
}

func TestPartnerQR(t *testing.T) {
	data, err := PartnerQR(7, time.Now(), 256)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("expected a PNG, got %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 256 {
		t.Errorf("expected 256x256, got %v", b)
	}
}

func TestRecordPartnerVisit(t *testing.T) {
	db := openTestDB(t)
	auth := NewAuth(db)
	player, _ := db.CreateGuest("a")
	partner, _ := db.CreatePartner("Café", "hash")
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	v, err := RecordPartnerVisit(db, auth, player, PartnerPayload(partner, now.Add(-72*time.Hour)), now)
	if err != nil {
		t.Fatal(err)
	}
	if !v.New || v.PartnerID != partner || v.Name != "Café" {
		t.Errorf("unexpected visit %+v", v)
	}
	rc, err := auth.ValidateReceipt(v.Receipt)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if rc.Day != "2026-05-01" || rc.PlayerID != player {
		t.Errorf("unexpected receipt %+v", rc)
	}

	v, err = RecordPartnerVisit(db, auth, player, PartnerPayload(partner, now), now.Add(time.Hour))
	if err != nil || v.New {
		t.Errorf("expected a repeat visit, got %+v %v", v, err)
	}

	if _, err := RecordPartnerVisit(db, auth, player, "KT-PARTNER|999|1", now); !errors.Is(err, ErrUnknownPartner) {
		t.Errorf("expected ErrUnknownPartner, got %v", err)
	}
	if _, err := RecordPartnerVisit(db, auth, player, "KT-PARTNER|cafe|1", now); !errors.Is(err, ErrUnknownPartner) {
		t.Errorf("expected ErrUnknownPartner for a non-numeric id, got %v", err)
	}
	if _, err := RecordPartnerVisit(db, auth, player, "hello", now); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("expected ErrInvalidPayload, got %v", err)
	}
}

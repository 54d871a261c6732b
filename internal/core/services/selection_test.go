package services

import (
	"context"
	"testing"
	"time"

	"setoran-pa/internal/adapters/backend/backendtest"
	"setoran-pa/internal/core/domain"
)

func TestSelectionRegistry(t *testing.T) {
	s := NewSelection()
	annaba := domain.SubmitItem{ComponentID: "komp-2", Name: "An-Naba"}

	if !s.Add(testNIM, alFatihah) || s.Add(testNIM, alFatihah) {
		t.Fatalf("expected first add to select and second to be a no-op")
	}
	if !s.Toggle(testNIM, annaba) {
		t.Fatalf("expected toggle to select")
	}
	items := s.Items(testNIM)
	if len(items) != 2 || items[0].ComponentID != "komp-1" || items[1].ComponentID != "komp-2" {
		t.Fatalf("unexpected items %+v", items)
	}
	if s.Toggle(testNIM, annaba) {
		t.Fatalf("expected toggle to unselect")
	}
	if !s.Remove(testNIM, "komp-1") || s.Remove(testNIM, "komp-1") {
		t.Fatalf("expected remove once")
	}
	if len(s.Items(testNIM)) != 0 {
		t.Fatalf("expected empty selection")
	}

	s.Add(testNIM, alFatihah)
	s.Add("20102030406", annaba)
	s.Clear(testNIM)
	if len(s.Items(testNIM)) != 0 || len(s.Items("20102030406")) != 1 {
		t.Fatalf("expected clear to be per student")
	}
	s.ClearAll()
	if len(s.Items("20102030406")) != 0 {
		t.Fatalf("expected clear all")
	}
}

func TestSubmitSelection(t *testing.T) {
	h := newHarness(t, backendtest.Student{
		NIM:  testNIM,
		Name: "Ahmad",
		Components: []backendtest.Component{
			{ID: "c-1", ComponentID: "komp-1", Name: "Al-Fatihah", Label: "KP"},
			{ID: "c-2", ComponentID: "komp-2", Name: "An-Naba", Label: "KP", DepositID: "setoran-9"},
		},
	})
	h.saveCredentials(t, mintCredentials(t, "s", time.Hour))
	ctx := context.Background()

	h.deposits.FetchDetail(ctx, testNIM)
	if err := h.deposits.Select(testNIM, domain.SubmitItem{ComponentID: "komp-2"}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validated component to be refused, got %v", err)
	}
	if err := h.deposits.Select(testNIM, domain.SubmitItem{ComponentID: "komp-404"}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected unknown component to be refused, got %v", err)
	}
	if err := h.deposits.Select(testNIM, domain.SubmitItem{ComponentID: "komp-1"}); err != nil {
		t.Fatalf("select error: %v", err)
	}
	if items := h.deposits.Selection().Items(testNIM); len(items) != 1 || items[0].Name != "Al-Fatihah" {
		t.Fatalf("expected name filled from detail, got %+v", items)
	}

	h.server.SetReject("sedang maintenance")
	if st := h.deposits.SubmitSelection(ctx, testNIM); st.Status != domain.StatusError {
		t.Fatalf("expected rejected submit, got %+v", st)
	}
	if len(h.deposits.Selection().Items(testNIM)) != 1 {
		t.Fatalf("expected selection kept after a failed submit")
	}

	h.server.SetReject("")
	if st := h.deposits.SubmitSelection(ctx, testNIM); st.Status != domain.StatusSuccess {
		t.Fatalf("expected submit success, got %+v", st)
	}
	if len(h.deposits.Selection().Items(testNIM)) != 0 {
		t.Fatalf("expected selection cleared after success")
	}
}

//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/healthhub/api/internal/domain/appointment"
	"github.com/healthhub/api/internal/domain/doctor"
	"github.com/healthhub/api/internal/domain/summary"
	"github.com/healthhub/api/internal/platform/auth"
)

func TestDoctors_AdminManagesDirectory(t *testing.T) {
	app := newTestApp(t)
	admin := createUser(t, auth.RoleAdmin)
	patient := createUser(t, auth.RolePatient)

	body := map[string]any{
		"name":      "Dr. Amara Osei",
		"specialty": "Cardiology",
		"hospital":  "Riverside General",
		"languages": []string{"en", "tw"},
		"rating":    4.5,
	}
	rec := app.do(t, http.MethodPost, "/api/doctors", patient, body)
	expectStatus(t, rec, http.StatusForbidden)

	rec = app.do(t, http.MethodPost, "/api/doctors", admin, body)
	expectStatus(t, rec, http.StatusCreated)
	var created doctor.Doctor
	decodeBody(t, rec, &created)
	if created.ID == "" {
		t.Fatal("expected doctor id")
	}

	rec = app.do(t, http.MethodGet, "/api/doctors?specialty=cardio", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var found []doctor.Doctor
	decodeBody(t, rec, &found)
	var match bool
	for _, d := range found {
		if d.ID == created.ID {
			match = true
			if len(d.Languages) != 2 {
				t.Errorf("expected 2 languages, got %v", d.Languages)
			}
		}
	}
	if !match {
		t.Errorf("expected %s in search results", created.ID)
	}

	rec = app.do(t, http.MethodPut, "/api/doctors/"+created.ID, admin, map[string]any{"hospital": "Lakeside Clinic"})
	expectStatus(t, rec, http.StatusOK)
	var updated doctor.Doctor
	decodeBody(t, rec, &updated)
	if updated.Hospital != "Lakeside Clinic" || updated.Name != created.Name {
		t.Errorf("unexpected update result %+v", updated)
	}
}

func TestAppointments_BookListCancel(t *testing.T) {
	app := newTestApp(t)
	admin := createUser(t, auth.RoleAdmin)
	patient := createUser(t, auth.RolePatient)

	rec := app.do(t, http.MethodPost, "/api/doctors", admin, map[string]any{
		"name": "Dr. Lena Park", "specialty": "Dermatology", "hospital": "Northside",
	})
	expectStatus(t, rec, http.StatusCreated)
	var doc doctor.Doctor
	decodeBody(t, rec, &doc)

	rec = app.do(t, http.MethodPost, "/api/appointments", patient, map[string]any{
		"doctor_id": doc.ID, "date_time": "2026-11-02T10:30:00+01:00",
	})
	expectStatus(t, rec, http.StatusCreated)
	var booked appointment.Appointment
	decodeBody(t, rec, &booked)
	if booked.Status != appointment.StatusBooked {
		t.Errorf("expected booked, got %s", booked.Status)
	}
	if booked.DateTime.UTC().Hour() != 9 {
		t.Errorf("expected 09:30 UTC, got %s", booked.DateTime)
	}
	if booked.Doctor == nil || booked.Doctor.ID != doc.ID {
		t.Errorf("expected embedded doctor %s, got %+v", doc.ID, booked.Doctor)
	}

	rec = app.do(t, http.MethodGet, "/api/appointments/user/"+patient, patient, nil)
	expectStatus(t, rec, http.StatusOK)
	var list []appointment.Appointment
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].ID != booked.ID {
		t.Fatalf("expected the booked appointment, got %+v", list)
	}

	stranger := createUser(t, auth.RolePatient)
	rec = app.do(t, http.MethodDelete, "/api/appointments/"+booked.ID, stranger, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = app.do(t, http.MethodDelete, "/api/appointments/"+booked.ID, patient, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = app.do(t, http.MethodDelete, "/api/appointments/"+booked.ID, patient, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestSummaries_SaveAndList(t *testing.T) {
	app := newTestApp(t)
	patient := createUser(t, auth.RolePatient)

	for _, text := range []string{"first report", "second report"} {
		rec := app.do(t, http.MethodPost, "/api/summarize", patient, map[string]any{"report_text": text})
		expectStatus(t, rec, http.StatusCreated)
	}

	rec := app.do(t, http.MethodGet, "/api/summarize", patient, nil)
	expectStatus(t, rec, http.StatusOK)
	var list []summary.Summary
	decodeBody(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(list))
	}
	if list[0].OriginalReport != "second report" || list[0].Summary != "summary: second report" {
		t.Errorf("unexpected newest summary %+v", list[0])
	}
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	app := newTestApp(t)
	patient := createUser(t, auth.RolePatient)

	for _, path := range []string{"/api/doctors/not-a-uuid", "/api/products/not-a-uuid"} {
		rec := app.do(t, http.MethodGet, path, patient, nil)
		expectStatus(t, rec, http.StatusNotFound)
	}
	rec := app.do(t, http.MethodDelete, "/api/appointments/not-a-uuid", patient, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = app.do(t, http.MethodPost, "/api/orders", patient, map[string]any{
		"products": []map[string]any{{"product_id": "ghost", "quantity": 1}},
	})
	expectStatus(t, rec, http.StatusNotFound)
}

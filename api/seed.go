/*
seed.go - Demo data loader

PURPOSE:
  Generates a batch of plausible booking requests so a fresh deployment
  has data to demo against. Names, cities, and service types are drawn
  from fixed pools; each generated request goes through the normal
  booking path, so seeded data obeys the same capacity rules as real
  traffic (including overloads when the batch is large enough).

SEE ALSO:
  - server.go: POST /api/seed
  - engine/engine.go: Book
*/
package api

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"

	"github.com/warp/allocation-engine/engine"
)

// ============================================================================
// SEED POOLS
// ============================================================================

var seedFirstNames = []string{
	"Aarav", "Diya", "Rohan", "Priya", "Kabir", "Ananya",
	"Vikram", "Meera", "Arjun", "Sneha", "Rahul", "Pooja",
}

var seedSurnames = []string{
	"Sharma", "Patel", "Reddy", "Iyer", "Khan", "Das",
	"Nair", "Gupta", "Singh", "Joshi",
}

var seedServices = []string{
	"Aadhaar Update",
	"PAN Card",
	"Passport Verification",
	"Driving License",
	"Voter ID",
	"Birth Certificate",
}

type seedLocation struct {
	city    string
	pincode string
}

// ============================================================================
// HANDLER
// ============================================================================

// SeedRequest controls the size of the generated batch.
type SeedRequest struct {
	Count int `json:"count"`
}

// SeedResponse reports how the batch landed.
type SeedResponse struct {
	Success   int `json:"success"`
	Overloads int `json:"overloads"`
	Failed    int `json:"failed"`
}

// Seed handles POST /api/seed.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.Count <= 0 {
		req.Count = 25
	}
	if req.Count > 500 {
		req.Count = 500
	}

	// Locations come from the configured directory so seeded traffic
	// always targets real centers.
	var locations []seedLocation
	for _, c := range h.Directory.List() {
		locations = append(locations, seedLocation{city: c.City, pincode: c.Pincode})
	}
	if len(locations) == 0 {
		writeError(w, http.StatusInternalServerError, "No centers configured", nil)
		return
	}

	var resp SeedResponse
	for i := 0; i < req.Count; i++ {
		loc := locations[rand.Intn(len(locations))]
		userType := engine.UserScheduled
		if rand.Intn(5) == 0 {
			userType = engine.UserWalkIn
		}
		in := engine.BookingInput{
			Name:        seedFirstNames[rand.Intn(len(seedFirstNames))] + " " + seedSurnames[rand.Intn(len(seedSurnames))],
			Phone:       seedPhone(),
			Age:         5 + rand.Intn(80),
			RequestType: seedServices[rand.Intn(len(seedServices))],
			UserType:    userType,
			City:        loc.city,
			Pincode:     loc.pincode,
		}

		_, err := h.Engine.Book(r.Context(), in)
		switch {
		case err == nil:
			resp.Success++
		case errors.Is(err, engine.ErrOverload):
			resp.Overloads++
		default:
			resp.Failed++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func seedPhone() string {
	digits := []byte("9876543210")
	p := make([]byte, 10)
	p[0] = '9'
	for i := 1; i < 10; i++ {
		p[i] = digits[rand.Intn(len(digits))]
	}
	return string(p)
}

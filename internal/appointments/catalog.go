package appointments

import (
	"fmt"
	"time"
)

// Catalog lists what a patient can pick when booking.
type Catalog struct {
	Hospitals []string `json:"hospitals"`
	Services  []string `json:"services"`
	Doctors   []string `json:"doctors"`
	TimeSlots []string `json:"timeSlots"`
}

var (
	defaultServices = []string{"General Checkup", "Dental Checkup", "Cardiology", "Dermatology", "Orthopedics"}
	defaultDoctors  = []string{"Dr. Smith", "Dr. Lee", "Dr. Alex"}
)

// timeSlots returns the half-hour slots of the morning (08:00-12:00) and
// afternoon (13:00-17:00) clinics.
func timeSlots() []string {
	var slots []string
	for _, session := range [][2]int{{8, 12}, {13, 17}} {
		for h := session[0]; h <= session[1]; h++ {
			slots = append(slots, fmt.Sprintf("%02d:00", h))
			if h < session[1] {
				slots = append(slots, fmt.Sprintf("%02d:30", h))
			}
		}
	}
	return slots
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// ParseSlot combines a "2006-1-2" date and an "HH:MM" slot into a time in loc.
func ParseSlot(date, slot string, loc *time.Location) (time.Time, error) {
	if date == "" || slot == "" {
		return time.Time{}, fmt.Errorf("date and time slot are required")
	}
	t, err := time.ParseInLocation("2006-1-2 15:04", date+" "+slot, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date or time slot %q %q: %w", date, slot, err)
	}
	return t, nil
}

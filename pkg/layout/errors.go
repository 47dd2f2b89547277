package layout

import "fmt"

// LayoutError reports a placement that cannot be made. Zone is set when a
// zonal region could not be fitted, Entity when a single item could not.
type LayoutError struct {
	Zone   string
	Entity string
	Msg    string
}

func (e *LayoutError) Error() string {
	switch {
	case e.Zone != "" && e.Entity != "":
		return fmt.Sprintf("layout: zone %q: %s: %s", e.Zone, e.Entity, e.Msg)
	case e.Zone != "":
		return fmt.Sprintf("layout: zone %q: %s", e.Zone, e.Msg)
	case e.Entity != "":
		return fmt.Sprintf("layout: %s: %s", e.Entity, e.Msg)
	}
	return "layout: " + e.Msg
}

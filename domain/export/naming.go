package export

import (
	"fmt"
	"time"
)

// FrameName builds the saved-frame file name for t: day, hour, minute,
// second and millisecond, then "_image" and ext. attempt > 0 adds a numeric
// suffix used when the plain name is already taken.
func FrameName(t time.Time, attempt int, ext string) string {
	stamp := fmt.Sprintf("%s-%03d", t.Format("02-15-04-05"), t.Nanosecond()/int(time.Millisecond))
	if attempt > 0 {
		return fmt.Sprintf("%s_image_%d%s", stamp, attempt, ext)
	}
	return stamp + "_image" + ext
}

package expr

import (
	"time"

	"github.com/squareup/pranascan/errors"
)

type helperFunc func(args []Value) (Value, error)

// helpers is the complete set of names a predicate may call. Anything else fails to parse.
var helpers = map[string]helperFunc{
	"date":        dateHelper,
	"datetime":    datetimeHelper,
	"time":        timeHelper,
	"duration":    durationHelper,
	"to_date":     toDateHelper,
	"to_datetime": toDatetimeHelper,
	"to_time":     toTimeHelper,
	"to_duration": toDurationHelper,
}

func intArgs(args []Value, minArgs int, maxArgs int) ([]int64, error) {
	if len(args) < minArgs || len(args) > maxArgs {
		if minArgs == maxArgs {
			return nil, errors.Errorf("expected %d arguments, got %d", minArgs, len(args))
		}
		return nil, errors.Errorf("expected %d to %d arguments, got %d", minArgs, maxArgs, len(args))
	}
	res := make([]int64, len(args))
	for i, arg := range args {
		if arg.Kind != KindInt {
			return nil, errors.Errorf("argument %d must be an integer, got %s", i+1, arg.Kind)
		}
		res[i] = arg.Int
	}
	return res, nil
}

func stringArg(args []Value) (string, error) {
	if len(args) != 1 || args[0].Kind != KindString {
		return "", errors.New("expected a single string argument")
	}
	return args[0].Str, nil
}

func dateHelper(args []Value) (Value, error) {
	a, err := intArgs(args, 3, 3)
	if err != nil {
		return Null, err
	}
	t, err := checkedDate(a[0], a[1], a[2], 0, 0, 0, 0)
	if err != nil {
		return Null, err
	}
	return DateValue(t), nil
}

func datetimeHelper(args []Value) (Value, error) {
	a, err := intArgs(args, 3, 7)
	if err != nil {
		return Null, err
	}
	if len(a) != 3 && len(a) < 6 {
		return Null, errors.New("datetime takes a date, optionally followed by hour, minute, second[, microsecond]")
	}
	parts := make([]int64, 7)
	copy(parts, a)
	t, err := checkedDate(parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], parts[6])
	if err != nil {
		return Null, err
	}
	return TimestampValue(t), nil
}

func timeHelper(args []Value) (Value, error) {
	a, err := intArgs(args, 3, 4)
	if err != nil {
		return Null, err
	}
	var micros int64
	if len(a) == 4 {
		micros = a[3]
	}
	return timeOfDay(a[0], a[1], a[2], micros)
}

func durationHelper(args []Value) (Value, error) {
	if len(args) == 1 && args[0].Kind == KindString {
		return toDurationHelper(args)
	}
	a, err := intArgs(args, 1, 3)
	if err != nil {
		return Null, err
	}
	d := time.Duration(a[0]) * 24 * time.Hour
	if len(a) > 1 {
		d += time.Duration(a[1]) * time.Second
	}
	if len(a) > 2 {
		d += time.Duration(a[2]) * time.Microsecond
	}
	return DurationValue(d), nil
}

func toDateHelper(args []Value) (Value, error) {
	s, err := stringArg(args)
	if err != nil {
		return Null, err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Null, errors.Errorf("invalid date %q", s)
	}
	return DateValue(t), nil
}

func toDatetimeHelper(args []Value) (Value, error) {
	s, err := stringArg(args)
	if err != nil {
		return Null, err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimestampValue(t.UTC()), nil
		}
	}
	return Null, errors.Errorf("invalid datetime %q", s)
}

func toTimeHelper(args []Value) (Value, error) {
	s, err := stringArg(args)
	if err != nil {
		return Null, err
	}
	t, err := time.Parse("15:04:05.999999999", s)
	if err != nil {
		return Null, errors.Errorf("invalid time %q", s)
	}
	return timeOfDay(int64(t.Hour()), int64(t.Minute()), int64(t.Second()), int64(t.Nanosecond()/1000))
}

func toDurationHelper(args []Value) (Value, error) {
	s, err := stringArg(args)
	if err != nil {
		return Null, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Null, errors.Errorf("invalid duration %q", s)
	}
	return DurationValue(d), nil
}

// checkedDate rejects components that time.Date would silently normalise.
func checkedDate(year, month, day, hour, minute, second, micros int64) (time.Time, error) {
	t := time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), int(second),
		int(micros)*1000, time.UTC)
	if int64(t.Year()) != year || int64(t.Month()) != month || int64(t.Day()) != day ||
		int64(t.Hour()) != hour || int64(t.Minute()) != minute || int64(t.Second()) != second ||
		micros < 0 || micros > 999999 {
		return time.Time{}, errors.Errorf("out of range date %d-%d-%d %d:%d:%d.%d", year, month, day,
			hour, minute, second, micros)
	}
	return t, nil
}

func timeOfDay(hour, minute, second, micros int64) (Value, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 || micros < 0 || micros > 999999 {
		return Null, errors.Errorf("out of range time %d:%d:%d.%d", hour, minute, second, micros)
	}
	d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second +
		time.Duration(micros)*time.Microsecond
	return TimeValue(d), nil
}

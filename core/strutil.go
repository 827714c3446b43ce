package core

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	// Count digits
	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	// Add space for negative sign
	if negative {
		digits++
	}

	// Build string from right to left
	buf := make([]byte, digits)
	pos := digits - 1

	for n > 0 {
		buf[pos] = byte('0' + n%10)
		n /= 10
		pos--
	}

	if negative {
		buf[0] = '-'
	}

	return string(buf)
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	// Count digits
	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	// Build string from right to left
	buf := make([]byte, digits)
	pos := digits - 1

	for n > 0 {
		buf[pos] = byte('0' + n%10)
		n /= 10
		pos--
	}

	return string(buf)
}

// ftoa formats f with three decimals, enough for step periods and volumes
func ftoa(f float32) string {
	if f != f {
		return "NaN"
	}
	negative := f < 0
	if negative {
		f = -f
	}
	if f > 4e6 {
		return "overflow"
	}

	milli := uint32(f*1000 + 0.5)
	frac := utoa(milli % 1000)
	for len(frac) < 3 {
		frac = "0" + frac
	}

	s := utoa(milli/1000) + "." + frac
	if negative {
		s = "-" + s
	}
	return s
}

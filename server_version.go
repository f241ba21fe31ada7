package binlog

import (
	"fmt"
	"strconv"
	"strings"
)

// serverVersion is the numeric part of a server version such as
// "8.0.36-log" or "10.11.2-MariaDB".
type serverVersion []int

func newServerVersion(str string) (serverVersion, error) {
	s := str
	if i := strings.IndexAny(s, "-+"); i != -1 {
		s = s[:i]
	}
	var sv serverVersion
	for _, v := range strings.Split(s, ".") {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("binlog: invalid serverVersion %q", str)
		}
		sv = append(sv, n)
	}
	if len(sv) != 3 {
		return nil, fmt.Errorf("binlog: invalid serverVersion %q", str)
	}
	return sv, nil
}

func (sv serverVersion) lt(v serverVersion) bool {
	for i := range sv {
		if sv[i] < v[i] {
			return true
		}
		if sv[i] > v[i] {
			return false
		}
	}
	return false
}

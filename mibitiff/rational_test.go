// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package mibitiff

import (
	"math"
	"math/big"
	"testing"
)

func Test_rationalFromFloat(t *testing.T) {
	cases := []struct {
		in    float64
		num   int64
		denom int64
	}{
		{0, 0, 1},
		{1, 1, 1},
		{0.5, 1, 2},
		{0.25, 1, 4},
		// Values with no exact binary representation reduce to the obvious
		// decimal fraction once the denominator is bounded
		{0.01, 1, 100},
		{0.3, 3, 10},
		{-0.01, -1, 100},
		{1.0 / 3.0, 1, 3},
		// The canonical bounded approximation of pi
		{math.Pi, 3126535, 995207},
		{-math.Pi, -3126535, 995207},
	}
	for _, c := range cases {
		num, denom, err := rationalFromFloat(c.in)
		if err != nil {
			t.Errorf("rationalFromFloat(%v) failed: %v", c.in, err)
			continue
		}
		if num != c.num || denom != c.denom {
			t.Errorf("rationalFromFloat(%v) = %v/%v, want %v/%v", c.in, num, denom, c.num, c.denom)
		}
	}
}

func Test_limitDenominatorSmallBound(t *testing.T) {
	// pi bounded at 10 picks 22/7; bounded at 100 picks 311/99
	r := new(big.Rat).SetFloat64(math.Pi)

	num, denom := limitDenominator(r.Num(), r.Denom(), 10)
	if num.Int64() != 22 || denom.Int64() != 7 {
		t.Errorf("limitDenominator(pi, 10) = %v/%v, want 22/7", num, denom)
	}

	num, denom = limitDenominator(r.Num(), r.Denom(), 100)
	if num.Int64() != 311 || denom.Int64() != 99 {
		t.Errorf("limitDenominator(pi, 100) = %v/%v, want 311/99", num, denom)
	}
}

func Test_micronCMRoundTrip(t *testing.T) {
	// One full cm is exactly 1/1
	r, err := micronToCM(10000)
	if err != nil {
		t.Fatalf("micronToCM failed: %v", err)
	}
	if r.Num != 1 || r.Denom != 1 {
		t.Errorf("micronToCM(10000) = %v/%v, want 1/1", r.Num, r.Denom)
	}

	// Positions whose cm value is an exact binary fraction survive the
	// round trip bit for bit
	for _, microns := range []float64{0, 2500, -6250, 10000, 500} {
		r, err := micronToCM(microns)
		if err != nil {
			t.Fatalf("micronToCM(%v) failed: %v", microns, err)
		}
		back := cmToMicron(r.Num, r.Denom)
		if back != microns {
			t.Errorf("round trip of %v microns gave %v (%v/%v cm)", microns, back, r.Num, r.Denom)
		}
	}

	// Values without an exact representation still come back close
	r, err = micronToCM(123.4)
	if err != nil {
		t.Fatalf("micronToCM failed: %v", err)
	}
	if math.Abs(cmToMicron(r.Num, r.Denom)-123.4) > 1e-6 {
		t.Errorf("round trip of 123.4 microns gave %v", cmToMicron(r.Num, r.Denom))
	}
}

func Test_unsignedRationalRejectsNegative(t *testing.T) {
	if _, err := unsignedRationalFromFloat(-1); err == nil {
		t.Errorf("expected error for negative unsigned rational")
	}
	if _, err := unsignedRationalFromFloat(40); err != nil {
		t.Errorf("unsignedRationalFromFloat(40) failed: %v", err)
	}
}

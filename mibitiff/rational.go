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
	"math/big"

	"github.com/ionpath/mibi-core/core/errortypes"
)

// Rational tags only hold 32 bit numerator/denominator pairs, so float
// values are first converted to an exact big.Rat and then reduced to the
// best approximation with denominator at most maxDenominator.
const maxDenominator = 1000000

// Stage positions and resolutions are stored in cm, metadata carries microns
const micronsPerCM = 10000.0

type rational struct {
	Num   uint32
	Denom uint32
}

type sRational struct {
	Num   int32
	Denom int32
}

// limitDenominator - best rational approximation of num/denom with the
// result denominator bounded. Walks the continued fraction expansion and
// then picks between the two final convergents by comparing which sits
// closer to the exact value.
func limitDenominator(num, denom *big.Int, maxDenom int64) (*big.Int, *big.Int) {
	if denom.CmpAbs(big.NewInt(maxDenom)) <= 0 {
		return num, denom
	}

	p0, q0 := big.NewInt(0), big.NewInt(1)
	p1, q1 := big.NewInt(1), big.NewInt(0)
	n := new(big.Int).Set(num)
	d := new(big.Int).Set(denom)
	limit := big.NewInt(maxDenom)

	for {
		a := new(big.Int)
		rem := new(big.Int)
		a.QuoRem(n, d, rem)

		q2 := new(big.Int).Mul(a, q1)
		q2.Add(q2, q0)
		if q2.Cmp(limit) > 0 {
			// k is the largest coefficient that keeps the denominator in
			// bounds; bound1 uses it, bound2 is the previous convergent
			k := new(big.Int).Sub(limit, q0)
			k.Quo(k, q1)

			bound1Num := new(big.Int).Mul(k, p1)
			bound1Num.Add(bound1Num, p0)
			bound1Denom := new(big.Int).Mul(k, q1)
			bound1Denom.Add(bound1Denom, q0)

			// Compare |bound2 - x| <= |bound1 - x| with x = num/denom, all
			// cross-multiplied onto a common denominator
			diff1 := new(big.Int).Mul(bound1Num, denom)
			diff1.Sub(diff1, new(big.Int).Mul(num, bound1Denom))
			diff1.Abs(diff1)
			diff1.Mul(diff1, q1)

			diff2 := new(big.Int).Mul(p1, denom)
			diff2.Sub(diff2, new(big.Int).Mul(num, q1))
			diff2.Abs(diff2)
			diff2.Mul(diff2, bound1Denom)

			if diff2.Cmp(diff1) <= 0 {
				return p1, q1
			}
			return bound1Num, bound1Denom
		}

		p2 := new(big.Int).Mul(a, p1)
		p2.Add(p2, p0)
		p0, q0 = p1, q1
		p1, q1 = p2, q2
		n, d = d, rem
		if rem.Sign() == 0 {
			return p1, q1
		}
	}
}

// rationalFromFloat - the exact binary fraction of v reduced to a bounded
// denominator, as a signed numerator/denominator pair
func rationalFromFloat(v float64) (int64, int64, error) {
	r := new(big.Rat).SetFloat64(v)
	if r == nil {
		return 0, 0, errortypes.MakeValidationError("cannot store %v in a rational tag", v)
	}
	// The continued fraction walk needs a non-negative value; best
	// approximations are symmetric under negation
	negative := r.Sign() < 0
	num, denom := limitDenominator(new(big.Int).Abs(r.Num()), r.Denom(), maxDenominator)
	if !num.IsInt64() || !denom.IsInt64() {
		return 0, 0, errortypes.MakeValidationError("value %v does not fit in a rational tag", v)
	}
	n := num.Int64()
	if negative {
		n = -n
	}
	return n, denom.Int64(), nil
}

// unsignedRationalFromFloat - for resolution tags, which are unsigned
func unsignedRationalFromFloat(v float64) (rational, error) {
	num, denom, err := rationalFromFloat(v)
	if err != nil {
		return rational{}, err
	}
	if num < 0 || num > 0xFFFFFFFF || denom <= 0 || denom > 0xFFFFFFFF {
		return rational{}, errortypes.MakeValidationError("value %v does not fit in an unsigned rational tag", v)
	}
	return rational{Num: uint32(num), Denom: uint32(denom)}, nil
}

// signedRationalFromFloat - for position tags, which may be negative
func signedRationalFromFloat(v float64) (sRational, error) {
	num, denom, err := rationalFromFloat(v)
	if err != nil {
		return sRational{}, err
	}
	if num < -2147483648 || num > 2147483647 || denom <= 0 || denom > 2147483647 {
		return sRational{}, errortypes.MakeValidationError("value %v does not fit in a signed rational tag", v)
	}
	return sRational{Num: int32(num), Denom: int32(denom)}, nil
}

// micronToCM - a micron quantity as a signed cm rational
func micronToCM(microns float64) (sRational, error) {
	return signedRationalFromFloat(microns / micronsPerCM)
}

// cmToMicron - recovers microns from a stored cm rational
func cmToMicron(num, denom int32) float64 {
	return float64(num) / float64(denom) * micronsPerCM
}

package rating

import "testing"

func TestUpdateEqualRatings(t *testing.T) {
	r := Update(1200, 1200)
	if r.Winner != 1216 || r.Loser != 1184 {
		t.Fatalf("equal 1200s: got %d/%d, want 1216/1184", r.Winner, r.Loser)
	}
}

func TestUpdateSymmetry(t *testing.T) {
	r := Update(1200, 1200)
	gain := r.Winner - 1200
	loss := 1200 - r.Loser
	if d := gain - loss; d < -1 || d > 1 {
		t.Fatalf("gain %d and loss %d differ by more than rounding", gain, loss)
	}
	if r.Winner <= r.Loser {
		t.Fatalf("winner %d not above loser %d", r.Winner, r.Loser)
	}
}

func TestUpdateMonotonicity(t *testing.T) {
	// Favorite beating an underdog gains less than the reverse upset.
	favorite := Update(1600, 1200)
	underdog := Update(1200, 1600)
	favGain := favorite.Winner - 1600
	dogGain := underdog.Winner - 1200
	if favGain >= dogGain {
		t.Fatalf("favorite gain %d should be below underdog gain %d", favGain, dogGain)
	}
	if favGain < 0 || dogGain > KFactor {
		t.Fatalf("gains out of range: favorite=%d underdog=%d", favGain, dogGain)
	}
}

func TestUpdateDeterministic(t *testing.T) {
	a := Update(1432, 1385)
	b := Update(1432, 1385)
	if a != b {
		t.Fatalf("same inputs produced %v and %v", a, b)
	}
}

package topic

import (
	"context"
	"strings"

	"math-shorts-pipeline/internal/types"
)

// entry is a curated topic with an offline blurb used when Wikipedia is
// unreachable.
type entry struct {
	name  string
	blurb string
}

// popularMath is the curated list of short-friendly math topics
var popularMath = []entry{
	// famous equations
	{"Pythagorean theorem", "The Pythagorean theorem relates the three sides of a right triangle. The square of the hypotenuse equals the sum of the squares of the other two sides. It is written as a squared plus b squared equals c squared."},
	{"Quadratic equation", "A quadratic equation is a polynomial equation of degree two. Its solutions are given by the quadratic formula. The discriminant tells you how many real roots exist."},
	{"Euler's identity", "Euler's identity states that e to the power of i pi, plus one, equals zero. It links five fundamental constants of mathematics in one short equation. Many mathematicians call it the most beautiful formula ever written."},
	{"Fibonacci sequence", "The Fibonacci sequence starts with zero and one. Each following number is the sum of the two numbers before it. The ratio of neighbouring terms approaches the golden ratio."},
	{"Golden ratio", "The golden ratio is about 1.618 and is usually written as the Greek letter phi. Two quantities are in the golden ratio when their ratio equals the ratio of their sum to the larger one. It appears in geometry, art and the Fibonacci sequence."},
	// important concepts
	{"Prime number", "A prime number is a natural number greater than one with exactly two divisors. Every whole number above one factors uniquely into primes. Euclid proved that there are infinitely many of them."},
	{"Factorial", "The factorial of a number multiplies every positive integer up to it. Five factorial equals one hundred and twenty. Factorials count the ways to arrange a set of objects."},
	{"Derivative", "A derivative measures how fast a function changes at a point. Geometrically it is the slope of the tangent line. Derivatives are the foundation of differential calculus."},
	{"Integral", "An integral adds up infinitely many infinitely small pieces. It measures the area under a curve. The fundamental theorem of calculus links integrals to derivatives."},
	{"Probability", "Probability measures how likely an event is, on a scale from zero to one. Independent events multiply their probabilities. It is the mathematical language of uncertainty."},
	// fascinating topics
	{"Pi", "Pi is the ratio of a circle's circumference to its diameter. It is roughly 3.14159 and its digits never repeat. Pi is both irrational and transcendental."},
	{"Infinity", "Infinity describes something without any end. Georg Cantor showed that some infinities are larger than others. The real numbers outnumber the natural numbers."},
	{"Fractal", "A fractal is a shape that repeats its pattern at every scale. Many fractals have a dimension that is not a whole number. Coastlines, ferns and the Mandelbrot set are famous examples."},
	{"Chaos theory", "Chaos theory studies systems that are extremely sensitive to initial conditions. A tiny change today can cause a huge difference later. This is popularly called the butterfly effect."},
	{"Game theory", "Game theory is the mathematics of strategic decisions. It models players who choose actions to maximise their payoff. The Nash equilibrium is its most famous idea."},
	// number theory
	{"Perfect number", "A perfect number equals the sum of its proper divisors. Six is perfect because one plus two plus three equals six. Every known even perfect number comes from a Mersenne prime."},
	{"Mersenne prime", "A Mersenne prime is a prime of the form two to the n, minus one. The largest known primes are almost always Mersenne primes. Volunteers search for new ones with distributed computing."},
	{"Twin prime", "Twin primes are pairs of primes that differ by two, like eleven and thirteen. Nobody knows whether there are infinitely many of them. This question is the famous twin prime conjecture."},
	{"Fermat's Last Theorem", "Fermat's Last Theorem says no three positive integers solve a to the n plus b to the n equals c to the n for n above two. Fermat claimed a proof in a margin in 1637. Andrew Wiles finally proved it in 1994."},
	{"Riemann hypothesis", "The Riemann hypothesis concerns the zeros of the Riemann zeta function. It predicts exactly how prime numbers are distributed. Solving it earns a one million dollar prize."},
	// geometry
	{"Circle", "A circle is the set of points at a fixed distance from a centre. Its area is pi times the radius squared. Its circumference is two pi times the radius."},
	{"Triangle", "A triangle is a polygon with three sides and three angles. The interior angles of a flat triangle always add up to one hundred and eighty degrees. Triangles are the most rigid shape in engineering."},
	{"Sphere", "A sphere is the set of points in space at a fixed distance from a centre. Its volume is four thirds pi r cubed. Among all shapes with the same volume it has the smallest surface."},
	{"Tesseract", "A tesseract is the four dimensional analogue of a cube. It has sixteen corners and eight cubic cells. We can only see its shadows in three dimensions."},
	{"Platonic solid", "A Platonic solid has identical regular faces meeting the same way at every corner. There are exactly five of them. The ancient Greeks linked them to the classical elements."},
	// algebra and calculus
	{"Polynomial", "A polynomial adds up powers of a variable multiplied by constants. Its degree is the highest power that appears. Polynomials can approximate almost any smooth function."},
	{"Exponential function", "The exponential function grows in proportion to its current value. Its derivative is itself. It models compound interest, populations and radioactive decay."},
	{"Logarithm", "A logarithm answers the question of which power produces a given number. Logarithms turn multiplication into addition. They were invented to speed up astronomical calculations."},
	{"Complex number", "A complex number has a real part and an imaginary part. The imaginary unit i squared equals minus one. Complex numbers make every polynomial equation solvable."},
	{"Matrix (mathematics)", "A matrix is a rectangular grid of numbers. Matrices describe linear transformations like rotations and scaling. Computer graphics and machine learning rely on them."},
	// statistics
	{"Normal distribution", "The normal distribution is the familiar bell curve. Its shape is set by a mean and a standard deviation. The central limit theorem explains why it appears everywhere."},
	{"Standard deviation", "Standard deviation measures how spread out data is. A small value means the data sits close to the mean. About 68 percent of normal data lies within one standard deviation."},
	{"Correlation", "Correlation measures how strongly two variables move together. It ranges from minus one to plus one. Correlation on its own does not prove causation."},
	{"Regression analysis", "Regression analysis fits a line or curve through data. It estimates how one variable depends on another. The least squares method is its classic tool."},
	// fun math
	{"Monty Hall problem", "In the Monty Hall problem you pick one of three doors and the host opens a losing one. Switching doors wins two thirds of the time. Even famous mathematicians refused to believe it."},
	{"Birthday paradox", "The birthday paradox says only twenty three people are needed for a fifty percent chance of a shared birthday. The number of possible pairs grows very quickly. Our intuition badly underestimates it."},
	{"Benford's law", "Benford's law says that in many real data sets the leading digit is one about thirty percent of the time. Larger leading digits are increasingly rare. Auditors use it to detect fraud."},
	{"Collatz conjecture", "The Collatz conjecture starts with any positive number. Halve it if it is even, otherwise triple it and add one. Every number ever tested eventually reaches one, but nobody can prove it."},
	{"Pascal's triangle", "Pascal's triangle starts with a single one at the top. Each number is the sum of the two numbers above it. Its rows give the binomial coefficients."},
}

// Curated serves the built-in topic list
type Curated struct {
	Category string
}

func (c Curated) Name() string { return "curated" }

func (c Curated) Candidates(_ context.Context) ([]types.Topic, error) {
	out := make([]types.Topic, 0, len(popularMath))
	for _, e := range popularMath {
		out = append(out, types.Topic{
			Name:     e.name,
			Category: c.Category,
			Summary:  e.blurb,
			Source:   "curated",
		})
	}
	return out, nil
}

// Blurb returns the offline description for a curated topic name
func Blurb(name string) (string, bool) {
	for _, e := range popularMath {
		if strings.EqualFold(e.name, strings.TrimSpace(name)) {
			return e.blurb, true
		}
	}
	return "", false
}

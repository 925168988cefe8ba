package iterate

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// axisValue is one evaluated point of an axis: either a literal string (a
// Values axis) or a float64 (a linear_range/log_range axis). Substitution
// text and the job_parameters map entry are both derived from the same
// axisValue so a template's ${k} and job_parameters["k"] never disagree.
type axisValue struct {
	str      string
	num      float64
	isNumber bool
}

func (v axisValue) text() string {
	if v.isNumber {
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return v.str
}

func (v axisValue) paramValue() interface{} {
	if v.isNumber {
		return v.num
	}
	return v.str
}

// evaluatedAxis is one axis reduced to its concrete 1-D sequence of values.
type evaluatedAxis struct {
	name   string
	values []axisValue
}

// evaluateAxis turns one IterationAxis into its concrete sequence, per
// spec's rule: values verbatim, linear_range equally spaced, log_range
// geometrically spaced, both ranges inclusive of start and stop.
func evaluateAxis(axis IterationAxis) (evaluatedAxis, error) {
	switch {
	case axis.Values != nil:
		values := make([]axisValue, len(axis.Values))
		for i, v := range axis.Values {
			values[i] = axisValue{str: v}
		}
		return evaluatedAxis{name: axis.Name, values: values}, nil

	case axis.LinearRange != nil:
		nums, err := linearRange(axis.LinearRange)
		if err != nil {
			return evaluatedAxis{}, fmt.Errorf("iterate: axis %q: %w", axis.Name, err)
		}
		return evaluatedAxis{name: axis.Name, values: numericAxisValues(nums)}, nil

	case axis.LogRange != nil:
		nums, err := logRange(axis.LogRange)
		if err != nil {
			return evaluatedAxis{}, fmt.Errorf("iterate: axis %q: %w", axis.Name, err)
		}
		return evaluatedAxis{name: axis.Name, values: numericAxisValues(nums)}, nil

	default:
		return evaluatedAxis{}, fmt.Errorf("iterate: axis %q has no values/linear_range/log_range", axis.Name)
	}
}

func numericAxisValues(nums []float64) []axisValue {
	values := make([]axisValue, len(nums))
	for i, n := range nums {
		values[i] = axisValue{num: n, isNumber: true}
	}
	return values
}

func evalRangeBounds(r *Range) (start, stop float64, count int, err error) {
	start, err = EvalExpr(r.Start)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("evaluating start: %w", err)
	}
	stop, err = EvalExpr(r.Stop)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("evaluating stop: %w", err)
	}
	countF, err := EvalExpr(r.Count)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("evaluating count: %w", err)
	}
	count = int(math.Round(countF))
	if count <= 0 {
		return 0, 0, 0, fmt.Errorf("count must evaluate to a positive integer, got %v", countF)
	}
	return start, stop, count, nil
}

// linearRange mirrors numpy.linspace(start, stop, count): count equally
// spaced points including both endpoints.
func linearRange(r *Range) ([]float64, error) {
	start, stop, count, err := evalRangeBounds(r)
	if err != nil {
		return nil, err
	}
	if count == 1 {
		return []float64{start}, nil
	}
	step := (stop - start) / float64(count-1)
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = start + float64(i)*step
	}
	return out, nil
}

// logRange mirrors numpy.geomspace(start, stop, count): count
// geometrically spaced points including both endpoints. start and stop are
// the actual endpoint values (not exponents), matching spec scenario S1
// (log_range:[1,100,3] => {1.0, 10.0, 100.0}).
func logRange(r *Range) ([]float64, error) {
	start, stop, count, err := evalRangeBounds(r)
	if err != nil {
		return nil, err
	}
	if start <= 0 || stop <= 0 {
		return nil, fmt.Errorf("log_range start/stop must be positive, got %v/%v", start, stop)
	}
	if count == 1 {
		return []float64{start}, nil
	}
	logStart, logStop := math.Log(start), math.Log(stop)
	step := (logStop - logStart) / float64(count-1)
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = math.Exp(logStart + float64(i)*step)
	}
	return out, nil
}

// sentinelAxis is substituted when a JobDescriptor declares no iterations,
// producing exactly one TaskList.
var sentinelAxis = evaluatedAxis{name: "null", values: []axisValue{{num: 0, isNumber: true}}}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandTaskList expands a JobDescriptor into its flat ordered sequence of
// TaskLists: the Cartesian product of its iteration axes (declaration
// order slowest to fastest varying), each point substituted into every
// TaskTemplate and re-parsed into ConcreteTasks. nested_tasks descriptors
// are expanded independently and their outputs concatenated after this
// descriptor's own.
func ExpandTaskList(descriptor JobDescriptor, nestedResolver func(ref string) (JobDescriptor, error)) ([]TaskList, error) {
	axes := descriptor.Iterations
	evaluated := make([]evaluatedAxis, 0, len(axes))
	if len(axes) == 0 {
		evaluated = append(evaluated, sentinelAxis)
	} else {
		for _, axis := range axes {
			ev, err := evaluateAxis(axis)
			if err != nil {
				return nil, err
			}
			evaluated = append(evaluated, ev)
		}
	}

	var taskLists []TaskList
	counter := 0
	var recurse func(idx int, substitution map[string]axisValue) error
	recurse = func(idx int, substitution map[string]axisValue) error {
		if idx == len(evaluated) {
			taskList, err := buildTaskList(descriptor, substitution, counter)
			if err != nil {
				return err
			}
			taskLists = append(taskLists, taskList)
			counter++
			return nil
		}
		axis := evaluated[idx]
		for _, v := range axis.values {
			substitution[axis.name] = v
			if err := recurse(idx+1, substitution); err != nil {
				return err
			}
		}
		delete(substitution, axis.name)
		return nil
	}
	if err := recurse(0, map[string]axisValue{}); err != nil {
		return nil, err
	}

	for _, ref := range descriptor.NestedTasks {
		if nestedResolver == nil {
			return nil, fmt.Errorf("iterate: descriptor references nested_tasks %q but no resolver was supplied", ref)
		}
		nested, err := nestedResolver(ref)
		if err != nil {
			return nil, fmt.Errorf("iterate: resolving nested_tasks %q: %w", ref, err)
		}
		nestedLists, err := ExpandTaskList(nested, nestedResolver)
		if err != nil {
			return nil, fmt.Errorf("iterate: expanding nested_tasks %q: %w", ref, err)
		}
		taskLists = append(taskLists, nestedLists...)
	}

	return taskLists, nil
}

func buildTaskList(descriptor JobDescriptor, substitution map[string]axisValue, counter int) (TaskList, error) {
	jobParameters := make(map[string]interface{}, len(substitution)+1)
	textSubstitution := make(map[string]string, len(substitution)+1)
	for name, v := range substitution {
		jobParameters[name] = v.paramValue()
		textSubstitution[name] = v.text()
	}
	index := fmt.Sprintf("%06d", counter)
	jobParameters["index"] = index
	textSubstitution["index"] = index

	tasks := make([]ConcreteTask, 0, len(descriptor.TaskList))
	for i, template := range descriptor.TaskList {
		substituted := placeholderPattern.ReplaceAllFunc([]byte(template), func(match []byte) []byte {
			name := placeholderPattern.FindSubmatch(match)[1]
			value, ok := textSubstitution[string(name)]
			if !ok {
				return match
			}
			return []byte(value)
		})
		var task ConcreteTask
		if err := json.Unmarshal(substituted, &task); err != nil {
			return TaskList{}, fmt.Errorf("iterate: re-parsing substituted task template %d: %w", i, err)
		}
		tasks = append(tasks, task)
	}

	return TaskList{
		JobName:       descriptor.JobName,
		JobParameters: jobParameters,
		CleanUp:       descriptor.cleanUpOrDefault(),
		Tasks:         tasks,
	}, nil
}

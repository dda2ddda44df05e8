package through

import (
	"fmt"

	"github.com/mickamy/manythrough/internal/naming"
)

const defaultPrimaryKey = "id"

// Declaration is the input to Registry.Declare. Only Host, Name and
// Through are required; the rest are inferred from naming conventions.
//
//	through.Declaration{Host: "Hospital", Name: "doctors", Through: "HospitalDoctor"}
//
// declares hospitals.doctors through hospital_doctors with foreign keys
// hospital_id and doctor_id.
type Declaration struct {
	Host             string `yaml:"host"`
	Name             string `yaml:"name"`
	Target           string `yaml:"target,omitempty"`
	Through          string `yaml:"through"`
	HostForeignKey   string `yaml:"host_foreign_key,omitempty"`
	TargetForeignKey string `yaml:"target_foreign_key,omitempty"`
	JoinPrimaryKey   string `yaml:"join_primary_key,omitempty"`
	TargetPrimaryKey string `yaml:"target_primary_key,omitempty"`
}

// Descriptor is the resolved, immutable metadata of one association.
// Host, Target and Join are table names; the key fields are column names.
type Descriptor struct {
	Name             string
	Host             string
	Target           string
	Join             string
	HostForeignKey   string
	TargetForeignKey string
	JoinPrimaryKey   string
	TargetPrimaryKey string
}

// IDsName returns the name of the id accessor, e.g. "doctor_ids".
func (d Descriptor) IDsName() string {
	return naming.Singular(d.Name) + "_ids"
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s.%s through %s", d.Host, d.Name, d.Join)
}

// describe validates decl and fills in conventional defaults.
func describe(decl Declaration) (Descriptor, error) {
	host := naming.TableName(decl.Host)
	if host == "" {
		return Descriptor{}, fmt.Errorf("%w: host type is required", ErrConfiguration)
	}
	name := naming.CamelToSnake(decl.Name)
	if name == "" {
		return Descriptor{}, fmt.Errorf("%w: association name is required for %s", ErrConfiguration, host)
	}
	join := naming.TableName(decl.Through)
	if join == "" {
		return Descriptor{}, fmt.Errorf("%w: %s.%s must declare a join type (through)", ErrConfiguration, host, name)
	}

	d := Descriptor{
		Name:             name,
		Host:             host,
		Target:           naming.TableName(decl.Target),
		Join:             join,
		HostForeignKey:   decl.HostForeignKey,
		TargetForeignKey: decl.TargetForeignKey,
		JoinPrimaryKey:   decl.JoinPrimaryKey,
		TargetPrimaryKey: decl.TargetPrimaryKey,
	}
	if d.Target == "" {
		d.Target = naming.TableName(name)
	}
	if d.HostForeignKey == "" {
		d.HostForeignKey = naming.ForeignKey(host)
	}
	if d.TargetForeignKey == "" {
		d.TargetForeignKey = naming.ForeignKey(naming.TableName(name))
	}
	if d.JoinPrimaryKey == "" {
		d.JoinPrimaryKey = defaultPrimaryKey
	}
	if d.TargetPrimaryKey == "" {
		d.TargetPrimaryKey = defaultPrimaryKey
	}
	if d.HostForeignKey == d.TargetForeignKey {
		return Descriptor{}, fmt.Errorf("%w: %s.%s uses %q for both foreign keys",
			ErrConfiguration, host, name, d.HostForeignKey)
	}
	return d, nil
}
